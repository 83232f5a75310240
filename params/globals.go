package params

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrInvalidConfig is returned for malformed or out-of-range settings.
var ErrInvalidConfig = errors.New("params: invalid config")

type LayerConfig struct {
	// Layer sizes used by the config-driven constructors
	DModel    int // model width (FFN input/output)
	InnerSize int // FFN hidden width

	// LayerNorm
	Epsilon       float64 // added to the variance before sqrt
	NormInitRange float64 // scale/shift drawn from U(-r, r)

	Seed uint64 // seed for utils.NewSource when callers don't bring their own

	// Parallel column loops inside LayerNorm; 1 disables.
	Workers int

	Debug      bool // enable periodic debug logs
	DebugEvery int  // log every N parameter updates
}

var Config = Default()

// Default returns the built-in settings.
func Default() LayerConfig {
	return LayerConfig{
		DModel:    64,
		InnerSize: 256,

		Epsilon:       1e-5,
		NormInitRange: 1.0,

		Seed: 42,

		Workers: 1,

		Debug:      false,
		DebugEvery: 1000,
	}
}

// Validate checks that every field is usable.
func (c LayerConfig) Validate() error {
	switch {
	case c.DModel <= 0 || c.InnerSize <= 0:
		return fmt.Errorf("%w: layer sizes must be positive (dModel=%d inner=%d)", ErrInvalidConfig, c.DModel, c.InnerSize)
	case c.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidConfig, c.Epsilon)
	case c.NormInitRange < 0:
		return fmt.Errorf("%w: norm init range must be >= 0, got %g", ErrInvalidConfig, c.NormInitRange)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.DebugEvery < 1:
		return fmt.Errorf("%w: debug interval must be >= 1, got %d", ErrInvalidConfig, c.DebugEvery)
	}
	return nil
}

// Environment overrides, e.g.
// LAYER_WORKERS=4 LAYER_DEBUG=1 go test ./...
const (
	envEpsilon    = "LAYER_EPSILON"
	envWorkers    = "LAYER_WORKERS"
	envSeed       = "LAYER_SEED"
	envDebug      = "LAYER_DEBUG"
	envDebugEvery = "LAYER_DEBUG_EVERY"
)

// LoadFromEnv applies environment overrides to Config. Config is left
// untouched if any override is malformed.
func LoadFromEnv() error {
	cfg, err := FromEnv(Config, os.LookupEnv)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// FromEnv returns base with overrides read through lookup.
func FromEnv(base LayerConfig, lookup func(string) (string, bool)) (LayerConfig, error) {
	cfg := base

	if v, ok := lookup(envEpsilon); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envEpsilon, v, err)
		}
		cfg.Epsilon = f
	}
	if v, ok := lookup(envWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envWorkers, v, err)
		}
		cfg.Workers = n
	}
	if v, ok := lookup(envSeed); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envSeed, v, err)
		}
		cfg.Seed = n
	}
	if v, ok := lookup(envDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envDebug, v, err)
		}
		cfg.Debug = b
	}
	if v, ok := lookup(envDebugEvery); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envDebugEvery, v, err)
		}
		cfg.DebugEvery = n
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
