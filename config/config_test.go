package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.Equal(cfg.GetInt(ConfigTTableSizePower), 23)
	is.Equal(cfg.GetBool(ConfigBookDisabled), false)
	is.Equal(cfg.GetString(ConfigAIDifficulty), "impossible")
	is.Equal(cfg.GetDuration(ConfigSolverTimeBudget), 3*time.Second)
	is.True(cfg.GetInt(ConfigSolverThreads) >= 1)
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	err := cfg.Load([]string{"--ai-difficulty", "hard", "--solver-time-budget", "2s", "--book-disabled", "solve", "4453"})
	is.NoErr(err)
	is.Equal(cfg.Args(), []string{"solve", "4453"})
	is.Equal(cfg.GetString(ConfigAIDifficulty), "hard")
	is.Equal(cfg.GetDuration(ConfigSolverTimeBudget), 2*time.Second)
	is.True(cfg.GetBool(ConfigBookDisabled))
	// untouched flags fall back to defaults
	is.Equal(cfg.GetInt(ConfigTTableSizePower), 23)
}

func TestLoadEnvironment(t *testing.T) {
	is := is.New(t)
	t.Setenv("CONNECT4_TTABLE_SIZE_POWER", "18")
	cfg := DefaultConfig()
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetInt(ConfigTTableSizePower), 18)
}

func TestLoadConfigFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "connect4.yaml")
	is.NoErr(os.WriteFile(path, []byte("data-path: /srv/connect4\nai-seed: 99\n"), 0o644))
	cfg := DefaultConfig()
	is.NoErr(cfg.Load([]string{"--config-file", path}))
	is.Equal(cfg.GetString(ConfigDataPath), "/srv/connect4")
	is.Equal(cfg.GetUint64(ConfigAISeed), uint64(99))
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.True(cfg.Load([]string{"--no-such-flag"}) != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.NoErr(cfg.Load([]string{"--book-path", "deep.book"}))
	cfg.AdjustRelativePaths("/opt/connect4")
	is.Equal(cfg.GetString(ConfigDataPath), filepath.Join("/opt/connect4", "data"))
	is.Equal(cfg.GetString(ConfigBookPath), "deep.book")

	cfg = DefaultConfig()
	is.NoErr(cfg.Load([]string{"--data-path", "/srv/c4"}))
	cfg.AdjustRelativePaths("/opt/connect4")
	is.Equal(cfg.GetString(ConfigDataPath), "/srv/c4")
}
