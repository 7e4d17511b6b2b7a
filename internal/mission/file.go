package mission

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/pursuit/internal/config"
)

// ErrEmptyGoal is returned when a mission file has no usable goal text.
var ErrEmptyGoal = errors.New("mission goal is empty")

// File is a YAML mission file:
//
//	goal: |
//	  Research the market.
//	  Then launch a campaign.
//	loop:
//	  max_iterations: 30
//	seed: 7
type File struct {
	Goal string           `yaml:"goal"`
	Loop config.LoopPatch `yaml:"loop,omitempty"`
	Seed uint64           `yaml:"seed,omitempty"`

	Path string `yaml:"-"`
}

// LoadFile reads and validates a mission file.
func LoadFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission file: %w", err)
	}

	f, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse parses mission file content.
func Parse(content []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(content, f); err != nil {
		return nil, fmt.Errorf("invalid mission file: %w", err)
	}
	if Normalize(f.Goal) == "" {
		return nil, ErrEmptyGoal
	}
	if f.Loop.MaxIterations != nil && *f.Loop.MaxIterations < 1 {
		return nil, fmt.Errorf("loop.max_iterations must be >= 1, got %d", *f.Loop.MaxIterations)
	}
	if f.Loop.MaxIdleIterations != nil && *f.Loop.MaxIdleIterations < 0 {
		return nil, fmt.Errorf("loop.max_idle_iterations must be >= 0, got %d", *f.Loop.MaxIdleIterations)
	}
	return f, nil
}
