// Package smooth provides frequency-domain smoothing and log-frequency
// resampling for spectral curves.
package smooth

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-hvsr/dsp/core"
)

// KonnoOhmachiSmoother applies Konno-Ohmachi logarithmic smoothing with a
// fixed frequency axis and bandwidth. Weights are precomputed once, so
// applying the smoother to many curves that share an axis is cheap.
type KonnoOhmachiSmoother struct {
	freqs   []float64
	weights [][]float64
}

// NewKonnoOhmachi builds a smoother for the given frequency axis.
//
// The smoothing window at center frequency fc weights each frequency f by
//
//	w(f) = (sin(b*log10(f/fc)) / (b*log10(f/fc)))^4
//
// with w(fc) = 1. Rows are normalized to unit sum. Larger bandwidth values
// produce narrower smoothing windows.
func NewKonnoOhmachi(freqs []float64, bandwidth float64) (*KonnoOhmachiSmoother, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("konno-ohmachi frequency axis must not be empty")
	}
	if bandwidth <= 0 {
		return nil, fmt.Errorf("konno-ohmachi bandwidth must be > 0: %f", bandwidth)
	}
	for i, f := range freqs {
		if f <= 0 {
			return nil, fmt.Errorf("konno-ohmachi frequencies must be > 0 at index %d: %f", i, f)
		}
	}

	n := len(freqs)
	weights := make([][]float64, n)
	for i, fc := range freqs {
		row := make([]float64, n)
		sum := 0.0
		for j, f := range freqs {
			var w float64
			if f == fc {
				w = 1
			} else {
				z := bandwidth * math.Log10(f/fc)
				s := math.Sin(z) / z
				w = s * s * s * s
			}
			row[j] = w
			sum += w
		}
		if sum > 0 {
			for j := range row {
				row[j] /= sum
			}
		}
		weights[i] = row
	}

	return &KonnoOhmachiSmoother{freqs: append([]float64(nil), freqs...), weights: weights}, nil
}

// Apply smooths values sampled on the smoother's frequency axis.
func (s *KonnoOhmachiSmoother) Apply(values []float64) ([]float64, error) {
	if len(values) != len(s.freqs) {
		return nil, fmt.Errorf("konno-ohmachi input length mismatch: %d != %d", len(values), len(s.freqs))
	}

	out := make([]float64, len(values))
	for i, row := range s.weights {
		acc := 0.0
		for j, w := range row {
			acc += w * values[j]
		}
		out[i] = acc
	}
	return out, nil
}

// KonnoOhmachi is the one-shot form of [KonnoOhmachiSmoother].
func KonnoOhmachi(freqs, values []float64, bandwidth float64) ([]float64, error) {
	s, err := NewKonnoOhmachi(freqs, bandwidth)
	if err != nil {
		return nil, err
	}
	return s.Apply(values)
}

// TriangularConstant smooths values with a symmetric triangular kernel of the
// given half-width in bins, truncated at the edges.
func TriangularConstant(values []float64, halfWidth int) ([]float64, error) {
	if halfWidth <= 0 {
		return nil, fmt.Errorf("triangular half-width must be > 0 bins: %d", halfWidth)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("triangular smoothing requires non-empty input")
	}

	out := make([]float64, len(values))
	for i := range values {
		acc := 0.0
		wsum := 0.0
		for d := -halfWidth; d <= halfWidth; d++ {
			j := i + d
			if j < 0 || j >= len(values) {
				continue
			}
			w := 1 - math.Abs(float64(d))/float64(halfWidth+1)
			acc += w * values[j]
			wsum += w
		}
		out[i] = acc / wsum
	}
	return out, nil
}

// TriangularProportional smooths values with a triangular kernel whose
// half-width is a fraction of the axis length. Fractions above 1 are read as
// percentages.
func TriangularProportional(values []float64, fraction float64) ([]float64, error) {
	if fraction > 1 {
		fraction /= 100
	}
	if fraction <= 0 || fraction >= 1 {
		return nil, fmt.Errorf("triangular fraction must be in (0, 1): %f", fraction)
	}

	halfWidth := int(fraction * float64(len(values)) / 2)
	if halfWidth < 1 {
		halfWidth = 1
	}
	return TriangularConstant(values, halfWidth)
}

// LogSpace returns n logarithmically spaced points over [min, max].
func LogSpace(min, max float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("logspace requires at least 2 points: %d", n)
	}
	if min <= 0 || max <= 0 {
		return nil, fmt.Errorf("logspace bounds must be > 0: [%f, %f]", min, max)
	}
	if min >= max {
		return nil, fmt.Errorf("logspace bounds must be increasing: [%f, %f]", min, max)
	}

	out := make([]float64, n)
	logMin := math.Log10(min)
	step := (math.Log10(max) - logMin) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, logMin+float64(i)*step)
	}
	// Pin the endpoints to the exact bounds.
	out[0] = min
	out[n-1] = max
	return out, nil
}

// Resample performs piecewise-linear interpolation of y (sampled at x) onto
// queryX. x must be strictly increasing; queries outside the range clamp to
// the endpoint values.
func Resample(x, y, queryX []float64) ([]float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("resample requires non-empty x and y")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("resample x/y length mismatch: %d != %d", len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, fmt.Errorf("resample x must be strictly increasing at index %d", i)
		}
	}

	out := make([]float64, len(queryX))
	for i, q := range queryX {
		q = core.Clamp(q, x[0], x[len(x)-1])

		j := sort.SearchFloat64s(x, q)
		if x[j] == q {
			out[i] = y[j]
			continue
		}
		x0, x1 := x[j-1], x[j]
		t := (q - x0) / (x1 - x0)
		out[i] = y[j-1] + t*(y[j]-y[j-1])
	}
	return out, nil
}
