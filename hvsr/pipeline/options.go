package pipeline

import (
	"go.uber.org/zap"

	"github.com/cwbudde/algo-hvsr/hvsr/curve"
	"github.com/cwbudde/algo-hvsr/hvsr/noise"
	"github.com/cwbudde/algo-hvsr/hvsr/peak"
	"github.com/cwbudde/algo-hvsr/hvsr/spectral"
)

// Config bundles the per-stage configurations of a full run.
type Config struct {
	Noise    noise.Config
	Spectral spectral.Config
	Curve    curve.Config
	Peak     peak.Config
	Logger   *zap.Logger
}

// DefaultConfig returns the stage defaults with logging disabled.
func DefaultConfig() Config {
	return Config{
		Noise:    noise.DefaultConfig(),
		Spectral: spectral.DefaultConfig(),
		Curve:    curve.DefaultConfig(),
		Peak:     peak.DefaultConfig(),
		Logger:   zap.NewNop(),
	}
}

// Option mutates a Config.
type Option func(*Config)

// WithNoiseOptions forwards options to the window selection stage.
func WithNoiseOptions(opts ...noise.Option) Option {
	return func(cfg *Config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.Noise)
			}
		}
	}
}

// WithSpectralOptions forwards options to the spectral stage.
func WithSpectralOptions(opts ...spectral.Option) Option {
	return func(cfg *Config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.Spectral)
			}
		}
	}
}

// WithCurveOptions forwards options to the curve stage.
func WithCurveOptions(opts ...curve.Option) Option {
	return func(cfg *Config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.Curve)
			}
		}
	}
}

// WithPeakOptions forwards options to the peak stage.
func WithPeakOptions(opts ...peak.Option) Option {
	return func(cfg *Config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.Peak)
			}
		}
	}
}

// WithLogger attaches a logger to the run. A nil logger falls back to
// the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// ApplyOptions builds a Config from the defaults and the given options.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate checks every stage configuration in pipeline order.
func (cfg Config) Validate() error {
	if err := cfg.Noise.Validate(); err != nil {
		return err
	}
	if err := cfg.Spectral.Validate(); err != nil {
		return err
	}
	if err := cfg.Curve.Validate(); err != nil {
		return err
	}
	return cfg.Peak.Validate()
}
