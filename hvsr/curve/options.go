package curve

import "github.com/cwbudde/algo-hvsr/hvsr"

// Method selects how the two horizontal components are merged into a
// single horizontal amplitude before dividing by the vertical.
type Method int

const (
	// MethodGeometric combines horizontals as sqrt(N*E).
	MethodGeometric Method = iota
	// MethodArithmetic combines horizontals as (N+E)/2.
	MethodArithmetic
	// MethodVectorSum combines horizontals as sqrt(N^2+E^2).
	MethodVectorSum
	// MethodQuadraticMean combines horizontals as sqrt((N^2+E^2)/2).
	MethodQuadraticMean
	// MethodMaxHorizontal takes the larger of the two horizontals per bin.
	MethodMaxHorizontal
	// MethodNorth uses the north component alone.
	MethodNorth
	// MethodEast uses the east component alone.
	MethodEast
)

func (m Method) String() string {
	switch m {
	case MethodGeometric:
		return "geometric"
	case MethodArithmetic:
		return "arithmetic"
	case MethodVectorSum:
		return "vector"
	case MethodQuadraticMean:
		return "quadratic"
	case MethodMaxHorizontal:
		return "max"
	case MethodNorth:
		return "north"
	case MethodEast:
		return "east"
	default:
		return "unknown"
	}
}

// Smoothing selects the spectral smoothing applied to each component's
// power spectrum before the ratio is formed.
type Smoothing int

const (
	SmoothingKonnoOhmachi Smoothing = iota
	SmoothingConstant
	SmoothingProportional
	SmoothingNone
)

func (s Smoothing) String() string {
	switch s {
	case SmoothingKonnoOhmachi:
		return "konno_ohmachi"
	case SmoothingConstant:
		return "constant"
	case SmoothingProportional:
		return "proportional"
	case SmoothingNone:
		return "none"
	default:
		return "unknown"
	}
}

// Statistic selects the per-bin aggregate over the retained window curves.
type Statistic int

const (
	StatisticMedian Statistic = iota
	StatisticMean
)

func (s Statistic) String() string {
	switch s {
	case StatisticMedian:
		return "median"
	case StatisticMean:
		return "mean"
	default:
		return "unknown"
	}
}

// Config holds the parameters for curve combination and outlier removal.
type Config struct {
	Method              Method
	Smoothing           Smoothing
	SmoothingBandwidth  float64
	ConstantHalfWidth   int
	ProportionalPercent float64
	Resample            bool
	ResamplePoints      int
	Statistic           Statistic
	OutlierCurveStd     float64
}

// DefaultConfig returns the curve stage defaults.
func DefaultConfig() Config {
	return Config{
		Method:              MethodGeometric,
		Smoothing:           SmoothingKonnoOhmachi,
		SmoothingBandwidth:  hvsr.DefaultSmoothingBandwidth,
		ConstantHalfWidth:   5,
		ProportionalPercent: 5,
		Resample:            true,
		ResamplePoints:      hvsr.DefaultResamplePoints,
		Statistic:           StatisticMedian,
		OutlierCurveStd:     hvsr.DefaultOutlierCurveStd,
	}
}

// Option mutates a Config.
type Option func(*Config)

// WithMethod selects the horizontal combination method.
func WithMethod(m Method) Option {
	return func(cfg *Config) {
		cfg.Method = m
	}
}

// WithSmoothing selects the smoothing family and its bandwidth. The
// bandwidth is interpreted per family: the Konno-Ohmachi coefficient,
// the constant half width in bins, or the proportional percentage.
func WithSmoothing(s Smoothing, bandwidth float64) Option {
	return func(cfg *Config) {
		cfg.Smoothing = s
		switch s {
		case SmoothingKonnoOhmachi:
			cfg.SmoothingBandwidth = bandwidth
		case SmoothingConstant:
			cfg.ConstantHalfWidth = int(bandwidth)
		case SmoothingProportional:
			cfg.ProportionalPercent = bandwidth
		}
	}
}

// WithResample sets the log-spaced output axis length. A count of zero
// disables resampling and keeps the raw spectral axis.
func WithResample(points int) Option {
	return func(cfg *Config) {
		if points == 0 {
			cfg.Resample = false
			return
		}
		cfg.Resample = true
		cfg.ResamplePoints = points
	}
}

// WithStatistic selects the per-bin aggregate statistic.
func WithStatistic(s Statistic) Option {
	return func(cfg *Config) {
		cfg.Statistic = s
	}
}

// WithOutlierCurveStd sets the deviation multiple beyond which a window
// curve is discarded.
func WithOutlierCurveStd(sigma float64) Option {
	return func(cfg *Config) {
		if sigma > 0 {
			cfg.OutlierCurveStd = sigma
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

// Validate reports the first invalid parameter.
func (cfg Config) Validate() error {
	if cfg.Method < MethodGeometric || cfg.Method > MethodEast {
		return hvsr.NewConfigurationError("horizontal_combine_method", "unknown method %d", int(cfg.Method))
	}
	switch cfg.Smoothing {
	case SmoothingKonnoOhmachi:
		if cfg.SmoothingBandwidth <= 0 {
			return hvsr.NewConfigurationError("smoothing_bandwidth", "must be > 0: %f", cfg.SmoothingBandwidth)
		}
	case SmoothingConstant:
		if cfg.ConstantHalfWidth <= 0 {
			return hvsr.NewConfigurationError("smoothing_bandwidth", "half width must be > 0: %d", cfg.ConstantHalfWidth)
		}
	case SmoothingProportional:
		if cfg.ProportionalPercent <= 0 {
			return hvsr.NewConfigurationError("smoothing_bandwidth", "percentage must be > 0: %f", cfg.ProportionalPercent)
		}
	case SmoothingNone:
	default:
		return hvsr.NewConfigurationError("smoothing_method", "unknown smoothing %d", int(cfg.Smoothing))
	}
	if cfg.Resample && cfg.ResamplePoints < 2 {
		return hvsr.NewConfigurationError("resample_points", "must be >= 2: %d", cfg.ResamplePoints)
	}
	if cfg.Statistic != StatisticMedian && cfg.Statistic != StatisticMean {
		return hvsr.NewConfigurationError("aggregate_statistic", "unknown statistic %d", int(cfg.Statistic))
	}
	if cfg.OutlierCurveStd <= 0 {
		return hvsr.NewConfigurationError("outlier_curve_std", "must be > 0: %f", cfg.OutlierCurveStd)
	}
	return nil
}
