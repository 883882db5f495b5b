// Package psd estimates power spectral density of time-series segments using
// the Welch overlapped-segment method.
package psd

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-hvsr/dsp/core"
	"github.com/cwbudde/algo-hvsr/dsp/taper"
)

// Config holds Welch estimator parameters.
type Config struct {
	SampleRate    float64
	SegmentLength int     // samples per FFT segment
	Overlap       float64 // overlap fraction in [0, 1)
	Taper         taper.Type
	Detrend       bool // remove segment mean before tapering
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns Welch defaults suited to short ambient-noise windows.
func DefaultConfig() Config {
	return Config{
		SampleRate:    100,
		SegmentLength: 256,
		Overlap:       0.75,
		Taper:         taper.TypeHann,
		Detrend:       true,
	}
}

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithSegmentLength sets the per-segment FFT length in samples. Lengths are
// rounded up to the next power of two to match the FFT plan sizes.
func WithSegmentLength(length int) Option {
	return func(cfg *Config) {
		if length > 0 {
			cfg.SegmentLength = core.NextPowerOf2(length)
		}
	}
}

// WithOverlap sets the segment overlap fraction.
func WithOverlap(overlap float64) Option {
	return func(cfg *Config) {
		if overlap >= 0 && overlap < 1 {
			cfg.Overlap = overlap
		}
	}
}

// WithTaper sets the segment taper function.
func WithTaper(t taper.Type) Option {
	return func(cfg *Config) {
		cfg.Taper = t
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

// Validate reports the first invalid Config field.
func (cfg Config) Validate() error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("psd sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.SegmentLength < 2 {
		return fmt.Errorf("psd segment length must be >= 2 samples: %d", cfg.SegmentLength)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return fmt.Errorf("psd overlap must be in [0, 1): %f", cfg.Overlap)
	}
	return nil
}

// Estimate is a one-sided PSD estimate in dB.
//
// The frequency axis excludes the DC bin so that downstream log-frequency
// operations remain well defined: Frequencies[k] = (k+1) * fs / nfft.
type Estimate struct {
	Frequencies []float64
	PowerDB     []float64
	Segments    int
}

// Welch computes the averaged overlapped-segment PSD of data.
//
// Each segment is optionally detrended (mean removal), tapered, transformed,
// and scaled by fs * sum(w^2). Interior bins are doubled for the one-sided
// form. The result is converted to dB (10*log10).
func Welch(data []float64, cfg Config) (Estimate, error) {
	if err := cfg.Validate(); err != nil {
		return Estimate{}, err
	}
	if len(data) < cfg.SegmentLength {
		return Estimate{}, fmt.Errorf("psd input shorter than one segment: %d < %d", len(data), cfg.SegmentLength)
	}

	nfft := cfg.SegmentLength
	step := int(float64(nfft) * (1 - cfg.Overlap))
	if step < 1 {
		step = 1
	}

	coeffs := taper.Generate(cfg.Taper, nfft, taper.WithPeriodic())
	norm := cfg.SampleRate * taper.SumSquares(coeffs)
	if norm == 0 {
		return Estimate{}, fmt.Errorf("psd taper normalization is zero")
	}

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return Estimate{}, fmt.Errorf("psd fft plan: %w", err)
	}

	binCount := nfft / 2 // bins 1..nfft/2, DC excluded
	acc := make([]float64, binCount)
	power := make([]float64, nfft)
	re := make([]float64, nfft)
	im := make([]float64, nfft)
	inData := make([]complex128, nfft)
	out := make([]complex128, nfft)

	segments := 0
	for start := 0; start+nfft <= len(data); start += step {
		seg := data[start : start+nfft]

		mean := 0.0
		if cfg.Detrend {
			for _, v := range seg {
				mean += v
			}
			mean /= float64(nfft)
		}

		for i, v := range seg {
			inData[i] = complex((v-mean)*coeffs[i], 0)
		}

		if err := plan.Forward(out, inData); err != nil {
			return Estimate{}, fmt.Errorf("psd fft: %w", err)
		}

		for i, c := range out {
			re[i] = real(c)
			im[i] = imag(c)
		}
		vecmath.Power(power, re, im)

		for k := 0; k < binCount; k++ {
			p := power[k+1] / norm
			if k+1 < nfft/2 {
				p *= 2 // one-sided: interior bins carry both halves
			}
			acc[k] += p
		}
		segments++
	}

	if segments == 0 {
		return Estimate{}, fmt.Errorf("psd produced no segments")
	}

	freqs := make([]float64, binCount)
	db := make([]float64, binCount)
	binHz := cfg.SampleRate / float64(nfft)
	for k := 0; k < binCount; k++ {
		freqs[k] = float64(k+1) * binHz
		p := acc[k] / float64(segments)
		if p <= 0 {
			p = math.SmallestNonzeroFloat64
		}
		db[k] = core.LinearPowerToDB(p)
	}

	return Estimate{Frequencies: freqs, PowerDB: db, Segments: segments}, nil
}
