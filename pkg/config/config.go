// Package config defines the GA configuration surface: every knob of one
// evolution run, loadable from YAML and validated before any generation runs.
// A Config is immutable for the duration of a run.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
)

// Selection strategies.
const (
	SelectionTournament = "tournament"
	SelectionRoulette   = "roulette"
)

// Config holds the full GA configuration for one run.
type Config struct {
	// Population parameters
	PopulationSize int `yaml:"population_size" validate:"required,min=1"`
	MaxGenerations int `yaml:"max_generations" validate:"required,min=1"`
	ElitismCount   int `yaml:"elitism_count" validate:"min=0"`

	// Operator rates
	MutationRate  float64 `yaml:"mutation_rate" validate:"min=0,max=1"`
	CrossoverRate float64 `yaml:"crossover_rate" validate:"min=0,max=1"`

	// Program grammar bounds
	MinLen      int   `yaml:"min_len" validate:"required,min=1"`
	MaxLen      int   `yaml:"max_len" validate:"required,min=1"`
	VarBankSize int   `yaml:"var_bank_size" validate:"min=0"`
	LiteralMin  int64 `yaml:"literal_min"`
	LiteralMax  int64 `yaml:"literal_max"`

	// Execution bounds
	StepLimit   int `yaml:"step_limit" validate:"required,min=1"`
	Concurrency int `yaml:"concurrency" validate:"min=1"`

	// Selection parameters
	Selection      string `yaml:"selection" validate:"oneof=tournament roulette"`
	TournamentSize int    `yaml:"tournament_size" validate:"min=1"`

	// Termination parameters. FitnessThreshold <= 0 means "derive from the
	// problem": any program scoring exactly on every case counts as solved.
	// StagnationWindow 0 disables stagnation detection.
	FitnessThreshold float64 `yaml:"fitness_threshold"`
	StagnationWindow int     `yaml:"stagnation_window" validate:"min=0"`

	// Fitness shaping
	LengthPenalty float64 `yaml:"length_penalty" validate:"min=0"`

	// Seed for the run's random generator; identical configs (seed included)
	// reproduce identical runs.
	Seed int64 `yaml:"seed"`
}

// Default returns a configuration with reasonable defaults. The literal range
// [-10, 10] matches the operand span random programs are seeded from.
func Default() *Config {
	return &Config{
		PopulationSize:   100,
		MaxGenerations:   200,
		ElitismCount:     2,
		MutationRate:     0.3,
		CrossoverRate:    0.7,
		MinLen:           1,
		MaxLen:           32,
		VarBankSize:      4,
		LiteralMin:       -10,
		LiteralMax:       10,
		StepLimit:        1000,
		Concurrency:      4,
		Selection:        SelectionTournament,
		TournamentSize:   3,
		FitnessThreshold: 0,
		StagnationWindow: 50,
		LengthPenalty:    0.001,
		Seed:             1,
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ConfigurationError, "failed to read config file"),
			errors.Fields{"path": path})
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ConfigurationError, "failed to parse config file"),
			errors.Fields{"path": path})
	}
	return cfg, nil
}
