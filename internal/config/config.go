// Package config loads the resona configuration file.
//
// The file is YAML and every key is optional; anything left out keeps the
// value from Default. Unknown keys are rejected so that a typo such as
// "treshold:" fails loudly instead of silently running with the default.
//
//	params:
//	  coupling: 2.0
//	  threshold: 0.618
//	  personalization: 0.0
//	seed: 42
//	convergence: {max_iterations: 100, epsilon: 0.001, dt: 0.01}
//	history: {capacity: 64, window: 10, min_samples: 4}
//	database: ./resona.db
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/integrator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/profile"
)

// MaxIterationsLimit caps convergence.max_iterations.
const MaxIterationsLimit = 100000

// Config is the decoded configuration file.
type Config struct {
	Params      engine.Params `yaml:"params"`
	Seed        *uint64       `yaml:"seed,omitempty"`
	Convergence Convergence   `yaml:"convergence"`
	History     History       `yaml:"history"`
	Database    string        `yaml:"database,omitempty"`
	Presets     string        `yaml:"presets,omitempty"` // CUE file or directory
}

// Convergence configures the request-mode integration loop.
type Convergence struct {
	MaxIterations int     `yaml:"max_iterations"`
	Epsilon       float64 `yaml:"epsilon"`
	Dt            float64 `yaml:"dt"`
}

// History configures the session history and the adaptive threshold.
type History struct {
	Capacity   int `yaml:"capacity"`
	Window     int `yaml:"window"`
	MinSamples int `yaml:"min_samples"`
}

// ValidationError reports one invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Params: engine.DefaultParams(),
		Convergence: Convergence{
			MaxIterations: integrator.DefaultMaxIters,
			Epsilon:       integrator.DefaultEpsilon,
			Dt:            integrator.DefaultDt,
		},
		History: History{
			Capacity:   profile.DefaultCapacity,
			Window:     gate.DefaultWindow,
			MinSamples: gate.DefaultMinHistory,
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes on top of Default and validates the result.
// An empty document yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return Config{}, fmt.Errorf("invalid config: %w", errors.Join(joined...))
	}
	return cfg, nil
}

// Validate checks every field and returns all problems, not just the first.
func (c Config) Validate() []ValidationError {
	var errs []ValidationError

	if err := c.Params.Validate(); err != nil {
		var pe *engine.ParamError
		for _, e := range unjoin(err) {
			if errors.As(e, &pe) {
				errs = append(errs, ValidationError{
					Field:   "params." + pe.Field,
					Message: fmt.Sprintf("must be in [%g, %g], got %g", pe.Min, pe.Max, pe.Value),
				})
			}
		}
	}

	if c.Convergence.MaxIterations < 1 || c.Convergence.MaxIterations > MaxIterationsLimit {
		errs = append(errs, ValidationError{
			Field:   "convergence.max_iterations",
			Message: fmt.Sprintf("must be in [1, %d], got %d", MaxIterationsLimit, c.Convergence.MaxIterations),
		})
	}
	if !positive(c.Convergence.Epsilon) {
		errs = append(errs, ValidationError{
			Field:   "convergence.epsilon",
			Message: fmt.Sprintf("must be positive, got %g", c.Convergence.Epsilon),
		})
	}
	if !positive(c.Convergence.Dt) || c.Convergence.Dt > 1 {
		errs = append(errs, ValidationError{
			Field:   "convergence.dt",
			Message: fmt.Sprintf("must be in (0, 1], got %g", c.Convergence.Dt),
		})
	}

	if c.History.Capacity < 1 {
		errs = append(errs, ValidationError{
			Field:   "history.capacity",
			Message: fmt.Sprintf("must be at least 1, got %d", c.History.Capacity),
		})
	}
	if c.History.Window < 1 {
		errs = append(errs, ValidationError{
			Field:   "history.window",
			Message: fmt.Sprintf("must be at least 1, got %d", c.History.Window),
		})
	}
	if c.History.MinSamples < 1 {
		errs = append(errs, ValidationError{
			Field:   "history.min_samples",
			Message: fmt.Sprintf("must be at least 1, got %d", c.History.MinSamples),
		})
	}

	return errs
}

// EngineOptions translates the configuration into engine options.
func (c Config) EngineOptions() []engine.Option {
	g := gate.New(c.Params.Threshold)
	g.Window = c.History.Window
	g.MinHistory = c.History.MinSamples

	opts := []engine.Option{
		engine.WithConvergence(c.Convergence.MaxIterations, c.Convergence.Epsilon),
		engine.WithDt(c.Convergence.Dt),
		engine.WithHistory(c.History.Capacity),
		engine.WithGate(g),
	}
	if c.Seed != nil {
		opts = append(opts, engine.WithSeed(*c.Seed))
	}
	return opts
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
