package peak

import "github.com/cwbudde/algo-hvsr/hvsr"

// Selection decides which candidate is reported when several peaks
// survive detection.
type Selection int

const (
	// SelectionMax prefers the candidate with the largest amplitude.
	SelectionMax Selection = iota
	// SelectionScored prefers the candidate passing the most
	// reliability and clarity conditions.
	SelectionScored
)

func (s Selection) String() string {
	switch s {
	case SelectionMax:
		return "max"
	case SelectionScored:
		return "scored"
	default:
		return "unknown"
	}
}

// Config holds the parameters for peak detection and scoring.
// FreqRangeLow and FreqRangeHigh restrict where candidates may sit and
// must lie inside the analysis band.
type Config struct {
	BandLowHz     float64
	BandHighHz    float64
	FreqRangeLow  float64
	FreqRangeHigh float64
	WaterLevel    float64
	Selection     Selection
}

// DefaultConfig returns the peak stage defaults. The candidate range
// spans the whole analysis band.
func DefaultConfig() Config {
	return Config{
		BandLowHz:     hvsr.DefaultBandLowHz,
		BandHighHz:    hvsr.DefaultBandHighHz,
		FreqRangeLow:  hvsr.DefaultBandLowHz,
		FreqRangeHigh: hvsr.DefaultBandHighHz,
		WaterLevel:    hvsr.DefaultWaterLevel,
		Selection:     SelectionMax,
	}
}

// Option mutates a Config.
type Option func(*Config)

// WithBand sets the analysis band in hertz and widens the candidate
// range to match.
func WithBand(low, high float64) Option {
	return func(cfg *Config) {
		cfg.BandLowHz = low
		cfg.BandHighHz = high
		cfg.FreqRangeLow = low
		cfg.FreqRangeHigh = high
	}
}

// WithFreqRange narrows the band in which candidates are accepted.
func WithFreqRange(low, high float64) Option {
	return func(cfg *Config) {
		cfg.FreqRangeLow = low
		cfg.FreqRangeHigh = high
	}
}

// WithWaterLevel sets the minimum aggregate amplitude a local maximum
// needs to count as a candidate.
func WithWaterLevel(level float64) Option {
	return func(cfg *Config) {
		cfg.WaterLevel = level
	}
}

// WithSelection sets the candidate ranking policy.
func WithSelection(s Selection) Option {
	return func(cfg *Config) {
		cfg.Selection = s
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

// Validate reports the first invalid parameter.
func (cfg Config) Validate() error {
	if cfg.BandLowHz <= 0 || cfg.BandHighHz <= cfg.BandLowHz {
		return hvsr.NewConfigurationError("hvsr_band", "need 0 < low < high, got [%f, %f]", cfg.BandLowHz, cfg.BandHighHz)
	}
	if cfg.FreqRangeLow < cfg.BandLowHz || cfg.FreqRangeHigh > cfg.BandHighHz || cfg.FreqRangeHigh <= cfg.FreqRangeLow {
		return hvsr.NewConfigurationError("peak_freq_range",
			"must be an ascending range inside the analysis band [%f, %f], got [%f, %f]",
			cfg.BandLowHz, cfg.BandHighHz, cfg.FreqRangeLow, cfg.FreqRangeHigh)
	}
	if cfg.WaterLevel <= 0 {
		return hvsr.NewConfigurationError("water_level", "must be > 0: %f", cfg.WaterLevel)
	}
	if cfg.Selection != SelectionMax && cfg.Selection != SelectionScored {
		return hvsr.NewConfigurationError("peak_selection", "unknown policy %d", int(cfg.Selection))
	}
	return nil
}
