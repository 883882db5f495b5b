// Package taper generates taper (window) functions applied to time-series
// segments before spectral estimation.
package taper

import "math"

// Type identifies a taper function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeCosine
	TypeTukey
)

// Option configures taper generation.
type Option func(*config)

type config struct {
	alpha    float64
	periodic bool
}

func defaultConfig() config {
	return config{
		alpha: 0.2,
	}
}

// WithAlpha configures the taper fraction for parametric tapers (Tukey).
func WithAlpha(v float64) Option {
	return func(c *config) {
		if v >= 0 && v <= 1 {
			c.alpha = v
		}
	}
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns taper coefficients of the given type and length.
//
// Unknown types fall back to rectangular.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	coeffs := make([]float64, length)
	for n := range coeffs {
		coeffs[n] = evalTaper(t, samplePosition(n, length, cfg.periodic), cfg)
	}

	return coeffs
}

// Apply multiplies buf in place by the taper of the given type.
func Apply(t Type, buf []float64, opts ...Option) {
	coeffs := Generate(t, len(buf), opts...)
	for i := range buf {
		buf[i] *= coeffs[i]
	}
}

// Name returns a short human-readable taper name.
func Name(t Type) string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeCosine:
		return "cosine"
	case TypeTukey:
		return "tukey"
	default:
		return "unknown"
	}
}

// SumSquares returns the sum of squared coefficients, used for PSD
// normalization (fs * sum(w^2)).
func SumSquares(coeffs []float64) float64 {
	sum := 0.0
	for _, c := range coeffs {
		sum += c * c
	}
	return sum
}

// CoherentGain returns the mean coefficient value.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}

func evalTaper(t Type, x float64, cfg config) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case TypeCosine:
		return math.Sin(math.Pi * x)
	case TypeTukey:
		return tukeyAt(x, cfg.alpha)
	default:
		return 1
	}
}

func samplePosition(n, size int, periodic bool) float64 {
	if periodic {
		return float64(n) / float64(size)
	}
	if size == 1 {
		return 0.5
	}
	return float64(n) / float64(size-1)
}

func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}
	if alpha >= 1 {
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	}

	half := alpha / 2
	switch {
	case x < half:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x > 1-half:
		return 0.5 * (1 + math.Cos(math.Pi*(2*(x-1)/alpha+1)))
	default:
		return 1
	}
}
