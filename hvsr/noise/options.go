package noise

import "github.com/cwbudde/algo-hvsr/hvsr"

// Config holds noise window selection parameters.
type Config struct {
	WindowLengthSec  float64
	Methods          []Method
	SatPercent       float64 // fraction of global peak amplitude
	NoisePercent     float64 // fraction of peak LTA envelope
	STASec           float64
	LTASec           float64
	STALTAThreshLow  float64
	STALTAThreshHigh float64
	WarmupSec        float64
	CooldownSec      float64
	MinSpanSec       float64
	ManualSpans      []Span
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the defaults from the central table.
func DefaultConfig() Config {
	return Config{
		WindowLengthSec:  hvsr.DefaultWindowLengthSec,
		Methods:          []Method{MethodAuto},
		SatPercent:       hvsr.DefaultSatPercent,
		NoisePercent:     hvsr.DefaultNoisePercent,
		STASec:           hvsr.DefaultSTASec,
		LTASec:           hvsr.DefaultLTASec,
		STALTAThreshLow:  hvsr.DefaultSTALTAThreshLow,
		STALTAThreshHigh: hvsr.DefaultSTALTAThreshHigh,
		MinSpanSec:       hvsr.DefaultMinSpanSec,
	}
}

// WithWindowLength sets the window length in seconds.
func WithWindowLength(seconds float64) Option {
	return func(cfg *Config) {
		if seconds > 0 {
			cfg.WindowLengthSec = seconds
		}
	}
}

// WithMethods sets the removal methods to apply, replacing the default.
func WithMethods(methods ...Method) Option {
	return func(cfg *Config) {
		if len(methods) > 0 {
			cfg.Methods = methods
		}
	}
}

// WithSatPercent sets the saturation threshold fraction.
func WithSatPercent(fraction float64) Option {
	return func(cfg *Config) {
		if fraction > 0 {
			cfg.SatPercent = fraction
		}
	}
}

// WithNoisePercent sets the noisy-window envelope threshold fraction.
func WithNoisePercent(fraction float64) Option {
	return func(cfg *Config) {
		if fraction > 0 {
			cfg.NoisePercent = fraction
		}
	}
}

// WithSTALTA sets the short- and long-term averaging lengths in seconds.
func WithSTALTA(staSec, ltaSec float64) Option {
	return func(cfg *Config) {
		if staSec > 0 {
			cfg.STASec = staSec
		}
		if ltaSec > 0 {
			cfg.LTASec = ltaSec
		}
	}
}

// WithSTALTAThresholds sets the antitrigger release and trigger thresholds.
func WithSTALTAThresholds(low, high float64) Option {
	return func(cfg *Config) {
		if low > 0 {
			cfg.STALTAThreshLow = low
		}
		if high > 0 {
			cfg.STALTAThreshHigh = high
		}
	}
}

// WithWarmupCooldown sets the edge guard bands in seconds.
func WithWarmupCooldown(warmupSec, cooldownSec float64) Option {
	return func(cfg *Config) {
		if warmupSec >= 0 {
			cfg.WarmupSec = warmupSec
		}
		if cooldownSec >= 0 {
			cfg.CooldownSec = cooldownSec
		}
	}
}

// WithManualSpans sets caller-selected rejected spans.
func WithManualSpans(spans ...Span) Option {
	return func(cfg *Config) {
		cfg.ManualSpans = spans
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
	if cfg.WindowLengthSec <= 0 {
		return hvsr.NewConfigurationError("window_length_sec", "must be > 0: %f", cfg.WindowLengthSec)
	}
	if len(cfg.Methods) == 0 {
		return hvsr.NewConfigurationError("remove_method", "at least one method required")
	}
	if cfg.SatPercent <= 0 || cfg.SatPercent > 1 {
		return hvsr.NewConfigurationError("sat_percent", "must be in (0, 1]: %f", cfg.SatPercent)
	}
	if cfg.NoisePercent <= 0 || cfg.NoisePercent > 1 {
		return hvsr.NewConfigurationError("noise_percent", "must be in (0, 1]: %f", cfg.NoisePercent)
	}
	if cfg.STASec <= 0 {
		return hvsr.NewConfigurationError("sta_sec", "must be > 0: %f", cfg.STASec)
	}
	if cfg.LTASec <= cfg.STASec {
		return hvsr.NewConfigurationError("lta_sec", "must exceed sta_sec: %f <= %f", cfg.LTASec, cfg.STASec)
	}
	if cfg.STALTAThreshLow <= 0 || cfg.STALTAThreshHigh <= cfg.STALTAThreshLow {
		return hvsr.NewConfigurationError("stalta_thresh",
			"thresholds must satisfy 0 < low < high: [%f, %f]", cfg.STALTAThreshLow, cfg.STALTAThreshHigh)
	}
	if cfg.WarmupSec < 0 || cfg.CooldownSec < 0 {
		return hvsr.NewConfigurationError("warmup_cooldown", "guard bands must be >= 0")
	}
	for _, s := range cfg.ManualSpans {
		if s.EndSec <= s.StartSec {
			return hvsr.NewConfigurationError("manual_spans",
				"span end must exceed start: [%f, %f]", s.StartSec, s.EndSec)
		}
	}
	return nil
}
