package spectral

import (
	"github.com/cwbudde/algo-hvsr/dsp/taper"
	"github.com/cwbudde/algo-hvsr/hvsr"
)

// Config holds spectral estimation parameters.
type Config struct {
	SegmentLength      int     // samples per Welch FFT segment
	Overlap            float64 // Welch segment overlap fraction in [0, 1)
	Taper              taper.Type
	OutlierStd         float64 // z-score threshold for PSD outlier windows
	OutlierBinFraction float64 // fraction of deviant bins that rejects a window
	MinWindowCount     int     // minimum surviving windows
	Workers            int     // concurrent PSD workers, 0 = GOMAXPROCS
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the defaults from the central table.
func DefaultConfig() Config {
	return Config{
		SegmentLength:      hvsr.DefaultPSDSegmentLength,
		Overlap:            hvsr.DefaultPSDOverlap,
		Taper:              taper.TypeHann,
		OutlierStd:         hvsr.DefaultOutlierStd,
		OutlierBinFraction: hvsr.DefaultOutlierBinFraction,
		MinWindowCount:     hvsr.DefaultMinWindowCount,
	}
}

// WithSegmentLength sets the Welch segment length in samples.
func WithSegmentLength(samples int) Option {
	return func(cfg *Config) {
		if samples > 0 {
			cfg.SegmentLength = samples
		}
	}
}

// WithOverlap sets the Welch overlap fraction.
func WithOverlap(fraction float64) Option {
	return func(cfg *Config) {
		if fraction >= 0 && fraction < 1 {
			cfg.Overlap = fraction
		}
	}
}

// WithTaper sets the Welch segment taper.
func WithTaper(t taper.Type) Option {
	return func(cfg *Config) {
		cfg.Taper = t
	}
}

// WithOutlierStd sets the PSD outlier z-score threshold.
func WithOutlierStd(sigma float64) Option {
	return func(cfg *Config) {
		if sigma > 0 {
			cfg.OutlierStd = sigma
		}
	}
}

// WithOutlierBinFraction sets the deviant-bin fraction that rejects a window.
func WithOutlierBinFraction(fraction float64) Option {
	return func(cfg *Config) {
		if fraction > 0 && fraction <= 1 {
			cfg.OutlierBinFraction = fraction
		}
	}
}

// WithMinWindowCount sets the minimum number of surviving windows.
func WithMinWindowCount(count int) Option {
	return func(cfg *Config) {
		if count > 0 {
			cfg.MinWindowCount = count
		}
	}
}

// WithWorkers bounds the number of concurrent PSD workers.
func WithWorkers(workers int) Option {
	return func(cfg *Config) {
		if workers >= 0 {
			cfg.Workers = workers
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate reports the first invalid option as a ConfigurationError.
func (cfg Config) Validate() error {
	if cfg.SegmentLength < 2 {
		return hvsr.NewConfigurationError("psd_segment_length", "must be >= 2 samples: %d", cfg.SegmentLength)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return hvsr.NewConfigurationError("psd_overlap", "must be in [0, 1): %f", cfg.Overlap)
	}
	if cfg.OutlierStd <= 0 {
		return hvsr.NewConfigurationError("outlier_std", "must be > 0: %f", cfg.OutlierStd)
	}
	if cfg.OutlierBinFraction <= 0 || cfg.OutlierBinFraction > 1 {
		return hvsr.NewConfigurationError("outlier_bin_fraction", "must be in (0, 1]: %f", cfg.OutlierBinFraction)
	}
	if cfg.MinWindowCount < 1 {
		return hvsr.NewConfigurationError("min_window_count", "must be >= 1: %d", cfg.MinWindowCount)
	}
	if cfg.Workers < 0 {
		return hvsr.NewConfigurationError("workers", "must be >= 0: %d", cfg.Workers)
	}
	return nil
}
