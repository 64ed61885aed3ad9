package bot

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Difficulty is a strength in [0, 1]. 0 picks uniformly among legal moves;
// 1 always plays a best move.
type Difficulty float64

const (
	MinDifficulty Difficulty = 0
	MaxDifficulty Difficulty = 1

	// baseTemperature is the softmax temperature at difficulty 0.5.
	baseTemperature = 0.25
)

var ErrDifficulty = errors.New("invalid difficulty")

type Preset struct {
	Name       string     `yaml:"name"`
	Difficulty Difficulty `yaml:"difficulty"`
}

//go:embed difficulties.yaml
var presetData []byte

var presets []Preset

func init() {
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(presetData, &doc); err != nil {
		panic(fmt.Sprintf("difficulty presets: %v", err))
	}
	presets = doc.Presets
}

// Presets returns the named difficulties, weakest first.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// ParseDifficulty accepts a preset name or a number in [0, 1].
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range presets {
		if p.Name == s {
			return p.Difficulty, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrDifficulty)
	}
	d := Difficulty(f)
	if !d.Valid() {
		return 0, fmt.Errorf("%v is outside [0, 1]: %w", f, ErrDifficulty)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Temperature is the softmax temperature for d: +Inf at 0 and 0 at 1.
func (d Difficulty) Temperature() float64 {
	switch {
	case d <= MinDifficulty:
		return math.Inf(1)
	case d >= MaxDifficulty:
		return 0
	}
	return baseTemperature * float64(1-d) / float64(d)
}

func (d Difficulty) String() string {
	for _, p := range presets {
		if p.Difficulty == d {
			return p.Name
		}
	}
	return strconv.FormatFloat(float64(d), 'f', 3, 64)
}
