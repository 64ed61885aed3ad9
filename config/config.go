package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigLogLevel           = "log-level"
	ConfigDataPath           = "data-path"
	ConfigBookPath           = "book-path"
	ConfigBookDisabled       = "book-disabled"
	ConfigTTableMemFraction  = "ttable-mem-fraction"
	ConfigTTableSizePower    = "ttable-size-power"
	ConfigSolverThreads      = "solver-threads"
	ConfigSolverNodeBudget   = "solver-node-budget"
	ConfigSolverTimeBudget   = "solver-time-budget"
	ConfigAIDifficulty       = "ai-difficulty"
	ConfigAISeed             = "ai-seed"
	ConfigCPUProfile         = "cpu-profile"
	ConfigMemProfile         = "mem-profile"
	ConfigConfigFile         = "config-file"
	envPrefix                = "CONNECT4"
	defaultTTableSizePower   = 23
	defaultTTableMemFraction = 0.0
	// beyond the opening book a solve can run for minutes
	defaultSolverTimeBudget = 3 * time.Second
)

// Config wraps a viper instance. Values come, in increasing priority, from
// defaults, an optional config file, CONNECT4_* environment variables and
// command-line flags.
type Config struct {
	*viper.Viper
	args []string
}

// DefaultConfig returns a configuration holding only defaults and the
// environment. Tests and library users start from it.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigLogLevel, "info")
	c.SetDefault(ConfigDataPath, "./data")
	c.SetDefault(ConfigBookPath, "")
	c.SetDefault(ConfigBookDisabled, false)
	c.SetDefault(ConfigTTableMemFraction, defaultTTableMemFraction)
	c.SetDefault(ConfigTTableSizePower, defaultTTableSizePower)
	c.SetDefault(ConfigSolverThreads, max(1, runtime.NumCPU()-1))
	c.SetDefault(ConfigSolverNodeBudget, 0)
	c.SetDefault(ConfigSolverTimeBudget, defaultSolverTimeBudget)
	c.SetDefault(ConfigAIDifficulty, "impossible")
	c.SetDefault(ConfigAISeed, 0)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
}

// FlagSet returns the command-line flags understood by Load.
func FlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigLogLevel, "info", "log level (trace, debug, info, warn, error)")
	fs.String(ConfigDataPath, "./data", "directory holding opening books and test sets")
	fs.String(ConfigBookPath, "", "opening book to use; empty means the embedded book")
	fs.Bool(ConfigBookDisabled, false, "solve without an opening book")
	fs.Float64(ConfigTTableMemFraction, defaultTTableMemFraction, "size the transposition table to this fraction of system memory (0 uses ttable-size-power)")
	fs.Int(ConfigTTableSizePower, defaultTTableSizePower, "transposition table has 2^n slots")
	fs.Int(ConfigSolverThreads, max(1, runtime.NumCPU()-1), "threads used to score moves")
	fs.Uint64(ConfigSolverNodeBudget, 0, "stop each solve after this many nodes (0 = no limit)")
	fs.Duration(ConfigSolverTimeBudget, defaultSolverTimeBudget, "stop each solve after this long (0 = no limit)")
	fs.String(ConfigAIDifficulty, "impossible", "AI difficulty: easy, medium, hard, impossible or a number in [0, 1]")
	fs.Uint64(ConfigAISeed, 0, "seed for the AI's random choices (0 = random)")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	fs.String(ConfigConfigFile, "", "optional config file (yaml, json or toml)")
	return fs
}

// Args returns the positional arguments left over by Load.
func (c *Config) Args() []string {
	return c.args
}

// Load parses args and layers them over the defaults and environment.
func (c *Config) Load(args []string) error {
	fs := FlagSet("connect4")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.args = fs.Args()
	if cf := c.GetString(ConfigConfigFile); cf != "" {
		c.SetConfigFile(cf)
		if err := c.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// AdjustRelativePaths resolves a relative data path against basePath,
// normally the executable's directory. Relative book paths are looked up
// under the data path.
func (c *Config) AdjustRelativePaths(basePath string) {
	p := c.GetString(ConfigDataPath)
	if p == "" || filepath.IsAbs(p) {
		return
	}
	c.Set(ConfigDataPath, filepath.Join(basePath, p))
}
