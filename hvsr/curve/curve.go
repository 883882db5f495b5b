// Package curve turns per-window component spectra into
// horizontal-to-vertical ratio curves and aggregates them across
// windows, discarding curves that stray too far from the ensemble.
package curve

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-hvsr/dsp/core"
	"github.com/cwbudde/algo-hvsr/dsp/smooth"
	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/spectral"
)

// Aggregate is the ensemble statistic over the retained window curves.
// StdDev is the per-bin sample deviation in linear amplitude, LogStdDev
// the deviation of the base-10 logarithm of the curves. Plus and Minus
// are the aggregate scaled up and down by one logarithmic deviation.
type Aggregate struct {
	Values    []float64
	StdDev    []float64
	LogStdDev []float64
	Plus      []float64
	Minus     []float64
}

// Set holds the per-window ratio curves on a shared frequency axis
// together with their aggregate. WindowIndices maps each row of
// PerWindow back to its source window.
type Set struct {
	Frequencies   []float64
	Resampled     bool
	WindowIndices []int
	PerWindow     [][]float64
	Aggregate     Aggregate
}

// Combine computes one ratio curve per retained window from the
// spectral result and aggregates them. Component spectra are smoothed
// on the raw axis, optionally resampled onto a log-spaced axis, and
// only then divided, so the ratio never mixes smoothed and raw bins.
func Combine(res spectral.Result, cfg Config) (Set, error) {
	if err := cfg.Validate(); err != nil {
		return Set{}, err
	}
	if len(res.Segments) == 0 {
		return Set{}, &hvsr.InsufficientDataError{Stage: "curve combination", Usable: 0, Required: 1}
	}

	smoothFn, err := newSmoother(res.Frequencies, cfg)
	if err != nil {
		return Set{}, err
	}

	axis := res.Frequencies
	if cfg.Resample {
		axis, err = smooth.LogSpace(res.Frequencies[0], res.Frequencies[len(res.Frequencies)-1], cfg.ResamplePoints)
		if err != nil {
			return Set{}, err
		}
	}

	set := Set{
		Frequencies:   axis,
		Resampled:     cfg.Resample,
		WindowIndices: make([]int, 0, len(res.Segments)),
		PerWindow:     make([][]float64, 0, len(res.Segments)),
	}
	for _, seg := range res.Segments {
		c, err := windowCurve(seg, res.Frequencies, axis, smoothFn, cfg)
		if err != nil {
			return Set{}, fmt.Errorf("window %d: %w", seg.WindowIndex, err)
		}
		set.WindowIndices = append(set.WindowIndices, seg.WindowIndex)
		set.PerWindow = append(set.PerWindow, c)
	}

	set.Aggregate = aggregate(set.PerWindow, cfg.Statistic)
	return set, nil
}

// RemoveOutliers discards window curves whose deviation from the
// aggregate falls outside the ensemble spread and recomputes the
// aggregate from the remainder. The scan runs once; survivors are
// never re-examined against the tightened ensemble. Discarded curves
// tag their windows in the returned copy. When removal would leave
// fewer than two curves, the input set is returned unchanged along
// with ErrDegenerateCurve so the caller can fall back to it.
func RemoveOutliers(set Set, windows []hvsr.Window, cfg Config) (Set, []hvsr.Window, error) {
	if err := cfg.Validate(); err != nil {
		return Set{}, nil, err
	}

	out := hvsr.CloneWindows(windows)
	n := len(set.PerWindow)
	if n < 3 {
		return set, out, nil
	}

	dev := make([]float64, n)
	for i, c := range set.PerWindow {
		dev[i] = logRMSDeviation(c, set.Aggregate.Values)
	}
	mean, sigma := stat.MeanStdDev(dev, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		return set, out, nil
	}
	lo := mean - cfg.OutlierCurveStd*sigma
	hi := mean + cfg.OutlierCurveStd*sigma

	kept := Set{
		Frequencies: set.Frequencies,
		Resampled:   set.Resampled,
	}
	removed := make([]int, 0)
	for i := range set.PerWindow {
		if dev[i] < lo || dev[i] > hi {
			removed = append(removed, set.WindowIndices[i])
			continue
		}
		kept.WindowIndices = append(kept.WindowIndices, set.WindowIndices[i])
		kept.PerWindow = append(kept.PerWindow, set.PerWindow[i])
	}

	if len(kept.PerWindow) == n {
		return set, out, nil
	}
	if len(kept.PerWindow) < 2 {
		return set, out, fmt.Errorf("curve outlier removal: %w", hvsr.ErrDegenerateCurve)
	}

	for i := range out {
		for _, idx := range removed {
			if out[i].Index == idx {
				out[i].Reject(hvsr.ReasonCurveOutlier)
			}
		}
	}

	kept.Aggregate = aggregate(kept.PerWindow, cfg.Statistic)
	return kept, out, nil
}

// newSmoother binds the configured smoothing family to the raw axis. A
// Konno-Ohmachi smoother precomputes its weights once and is shared by
// all windows and components.
func newSmoother(freqs []float64, cfg Config) (func([]float64) ([]float64, error), error) {
	switch cfg.Smoothing {
	case SmoothingKonnoOhmachi:
		ko, err := smooth.NewKonnoOhmachi(freqs, cfg.SmoothingBandwidth)
		if err != nil {
			return nil, err
		}
		return ko.Apply, nil
	case SmoothingConstant:
		halfWidth := cfg.ConstantHalfWidth
		return func(v []float64) ([]float64, error) {
			return smooth.TriangularConstant(v, halfWidth)
		}, nil
	case SmoothingProportional:
		fraction := cfg.ProportionalPercent / 100
		return func(v []float64) ([]float64, error) {
			return smooth.TriangularProportional(v, fraction)
		}, nil
	default:
		return func(v []float64) ([]float64, error) {
			out := make([]float64, len(v))
			copy(out, v)
			return out, nil
		}, nil
	}
}

// windowCurve smooths, resamples and divides one window's component
// spectra. Division happens in linear amplitude.
func windowCurve(seg spectral.Segment, rawAxis, axis []float64, smoothFn func([]float64) ([]float64, error), cfg Config) ([]float64, error) {
	amp := make(map[hvsr.Component][]float64, 3)
	for _, c := range []hvsr.Component{hvsr.ComponentVertical, hvsr.ComponentNorth, hvsr.ComponentEast} {
		powerDB, ok := seg.PowerDB[c]
		if !ok {
			return nil, &hvsr.AlignmentError{Stage: "curve combination", WantLen: 3, GotLen: len(seg.PowerDB)}
		}
		smoothed, err := smoothFn(powerDB)
		if err != nil {
			return nil, err
		}
		if cfg.Resample {
			smoothed, err = smooth.Resample(rawAxis, smoothed, axis)
			if err != nil {
				return nil, err
			}
		}
		a := make([]float64, len(smoothed))
		for k, db := range smoothed {
			a[k] = math.Sqrt(core.DBPowerToLinear(db))
		}
		amp[c] = a
	}

	v := amp[hvsr.ComponentVertical]
	n := amp[hvsr.ComponentNorth]
	e := amp[hvsr.ComponentEast]

	curve := make([]float64, len(axis))
	for k := range curve {
		curve[k] = combineHorizontals(n[k], e[k], cfg.Method) / v[k]
	}
	return curve, nil
}

func combineHorizontals(n, e float64, m Method) float64 {
	switch m {
	case MethodArithmetic:
		return (n + e) / 2
	case MethodVectorSum:
		return math.Sqrt(n*n + e*e)
	case MethodQuadraticMean:
		return math.Sqrt((n*n + e*e) / 2)
	case MethodMaxHorizontal:
		return math.Max(n, e)
	case MethodNorth:
		return n
	case MethodEast:
		return e
	default:
		return math.Sqrt(n * e)
	}
}

// aggregate reduces the curve ensemble per bin. With a single curve the
// deviations are zero and the bracketing curves collapse onto it.
func aggregate(curves [][]float64, statistic Statistic) Aggregate {
	bins := len(curves[0])
	agg := Aggregate{
		Values:    make([]float64, bins),
		StdDev:    make([]float64, bins),
		LogStdDev: make([]float64, bins),
		Plus:      make([]float64, bins),
		Minus:     make([]float64, bins),
	}

	column := make([]float64, len(curves))
	logColumn := make([]float64, len(curves))
	for k := 0; k < bins; k++ {
		for i, c := range curves {
			column[i] = c[k]
			logColumn[i] = math.Log10(c[k])
		}

		switch statistic {
		case StatisticMean:
			agg.Values[k] = stat.Mean(column, nil)
		default:
			sorted := make([]float64, len(column))
			copy(sorted, column)
			sort.Float64s(sorted)
			agg.Values[k] = median(sorted)
		}

		if len(curves) > 1 {
			_, agg.StdDev[k] = stat.MeanStdDev(column, nil)
			_, agg.LogStdDev[k] = stat.MeanStdDev(logColumn, nil)
		}
		factor := math.Pow(10, agg.LogStdDev[k])
		agg.Plus[k] = agg.Values[k] * factor
		agg.Minus[k] = agg.Values[k] / factor
	}
	return agg
}

// median returns the sample median of an already sorted slice: the middle
// element, or the midpoint of the two middle elements for even counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// logRMSDeviation is the root-mean-square distance between a curve and
// the reference in base-10 logarithmic amplitude.
func logRMSDeviation(c, ref []float64) float64 {
	var sum float64
	for k := range c {
		d := math.Log10(c[k]) - math.Log10(ref[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(c)))
}
