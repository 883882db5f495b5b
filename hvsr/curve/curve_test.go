package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/spectral"
)

const testBins = 48

func linearAxis(bins int) []float64 {
	axis := make([]float64, bins)
	for k := range axis {
		axis[k] = 0.5 * float64(k+1)
	}
	return axis
}

// ampDB returns the power level in decibels whose amplitude is a.
func ampDB(a float64) float64 {
	return 20 * math.Log10(a)
}

func flatSegment(index int, vAmp, nAmp, eAmp float64) spectral.Segment {
	seg := spectral.Segment{
		WindowIndex: index,
		PowerDB:     make(map[hvsr.Component][]float64, 3),
	}
	for c, a := range map[hvsr.Component]float64{
		hvsr.ComponentVertical: vAmp,
		hvsr.ComponentNorth:    nAmp,
		hvsr.ComponentEast:     eAmp,
	} {
		p := make([]float64, testBins)
		for k := range p {
			p[k] = ampDB(a)
		}
		seg.PowerDB[c] = p
	}
	return seg
}

func flatResult(segments ...spectral.Segment) spectral.Result {
	return spectral.Result{
		Frequencies: linearAxis(testBins),
		Segments:    segments,
	}
}

func windowsFor(res spectral.Result) []hvsr.Window {
	windows := make([]hvsr.Window, len(res.Segments))
	for i, seg := range res.Segments {
		windows[i] = hvsr.Window{Index: seg.WindowIndex}
	}
	return windows
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown method", func(c *Config) { c.Method = Method(99) }},
		{"unknown smoothing", func(c *Config) { c.Smoothing = Smoothing(99) }},
		{"zero bandwidth", func(c *Config) { c.SmoothingBandwidth = 0 }},
		{"one resample point", func(c *Config) { c.ResamplePoints = 1 }},
		{"unknown statistic", func(c *Config) { c.Statistic = Statistic(99) }},
		{"zero outlier std", func(c *Config) { c.OutlierCurveStd = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			var cfgErr *hvsr.ConfigurationError
			if !errors.As(cfg.Validate(), &cfgErr) {
				t.Fatal("expected ConfigurationError")
			}
		})
	}
}

func TestCombineNoSegments(t *testing.T) {
	_, err := Combine(flatResult(), DefaultConfig())

	var insufficient *hvsr.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestCombineHorizontalMethods(t *testing.T) {
	// Vertical amplitude 1, north 10, east 1 on every bin.
	tests := []struct {
		method Method
		want   float64
	}{
		{MethodGeometric, math.Sqrt(10)},
		{MethodArithmetic, 5.5},
		{MethodVectorSum, math.Sqrt(101)},
		{MethodQuadraticMean, math.Sqrt(50.5)},
		{MethodMaxHorizontal, 10},
		{MethodNorth, 10},
		{MethodEast, 1},
	}

	res := flatResult(flatSegment(0, 1, 10, 1))
	for _, tc := range tests {
		t.Run(tc.method.String(), func(t *testing.T) {
			set, err := Combine(res, ApplyOptions(WithMethod(tc.method)))
			if err != nil {
				t.Fatalf("Combine: %v", err)
			}
			for k, v := range set.PerWindow[0] {
				if math.Abs(v-tc.want) > 1e-9*tc.want {
					t.Fatalf("bin %d = %v, want %v", k, v, tc.want)
				}
			}
		})
	}
}

func TestCombineResampledAxis(t *testing.T) {
	res := flatResult(flatSegment(0, 1, 2, 2))

	set, err := Combine(res, DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if !set.Resampled {
		t.Fatal("expected resampled axis")
	}
	if len(set.Frequencies) != hvsr.DefaultResamplePoints {
		t.Fatalf("axis length = %d, want %d", len(set.Frequencies), hvsr.DefaultResamplePoints)
	}
	if set.Frequencies[0] != res.Frequencies[0] {
		t.Fatalf("axis start = %v, want %v", set.Frequencies[0], res.Frequencies[0])
	}
	last := len(set.Frequencies) - 1
	if set.Frequencies[last] != res.Frequencies[testBins-1] {
		t.Fatalf("axis end = %v, want %v", set.Frequencies[last], res.Frequencies[testBins-1])
	}
	for k := 1; k < len(set.Frequencies); k++ {
		if set.Frequencies[k] <= set.Frequencies[k-1] {
			t.Fatalf("axis not increasing at %d", k)
		}
	}
}

func TestCombineRawAxis(t *testing.T) {
	res := flatResult(flatSegment(0, 1, 2, 2))

	set, err := Combine(res, ApplyOptions(WithResample(0)))
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if set.Resampled {
		t.Fatal("expected raw axis")
	}
	if len(set.Frequencies) != testBins {
		t.Fatalf("axis length = %d, want %d", len(set.Frequencies), testBins)
	}
}

func TestAggregateStatistics(t *testing.T) {
	// Flat curves at 1, 2 and 10 via equal horizontals over a unit vertical.
	res := flatResult(
		flatSegment(0, 1, 1, 1),
		flatSegment(1, 1, 2, 2),
		flatSegment(2, 1, 10, 10),
	)

	t.Run("median", func(t *testing.T) {
		set, err := Combine(res, ApplyOptions(WithStatistic(StatisticMedian)))
		if err != nil {
			t.Fatalf("Combine: %v", err)
		}
		for k, v := range set.Aggregate.Values {
			if math.Abs(v-2) > 1e-9 {
				t.Fatalf("bin %d median = %v, want 2", k, v)
			}
		}
	})

	t.Run("median even count", func(t *testing.T) {
		evenRes := flatResult(
			flatSegment(0, 1, 1, 1),
			flatSegment(1, 1, 2, 2),
			flatSegment(2, 1, 3, 3),
			flatSegment(3, 1, 10, 10),
		)
		set, err := Combine(evenRes, ApplyOptions(WithStatistic(StatisticMedian)))
		if err != nil {
			t.Fatalf("Combine: %v", err)
		}
		for k, v := range set.Aggregate.Values {
			if math.Abs(v-2.5) > 1e-9 {
				t.Fatalf("bin %d median = %v, want 2.5", k, v)
			}
		}
	})

	t.Run("mean", func(t *testing.T) {
		set, err := Combine(res, ApplyOptions(WithStatistic(StatisticMean)))
		if err != nil {
			t.Fatalf("Combine: %v", err)
		}
		want := 13.0 / 3.0
		for k, v := range set.Aggregate.Values {
			if math.Abs(v-want) > 1e-9 {
				t.Fatalf("bin %d mean = %v, want %v", k, v, want)
			}
		}
	})

	t.Run("bracketing curves", func(t *testing.T) {
		set, err := Combine(res, DefaultConfig())
		if err != nil {
			t.Fatalf("Combine: %v", err)
		}
		agg := set.Aggregate
		for k := range agg.Values {
			factor := math.Pow(10, agg.LogStdDev[k])
			if math.Abs(agg.Plus[k]-agg.Values[k]*factor) > 1e-12 {
				t.Fatalf("bin %d: plus curve mismatch", k)
			}
			if math.Abs(agg.Minus[k]-agg.Values[k]/factor) > 1e-12 {
				t.Fatalf("bin %d: minus curve mismatch", k)
			}
			if agg.LogStdDev[k] <= 0 {
				t.Fatalf("bin %d: expected positive log deviation", k)
			}
		}
	})
}

func TestAggregateSingleCurve(t *testing.T) {
	set, err := Combine(flatResult(flatSegment(0, 1, 3, 3)), DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	agg := set.Aggregate
	for k := range agg.Values {
		if agg.StdDev[k] != 0 || agg.LogStdDev[k] != 0 {
			t.Fatalf("bin %d: nonzero deviation for a single curve", k)
		}
		if agg.Plus[k] != agg.Values[k] || agg.Minus[k] != agg.Values[k] {
			t.Fatalf("bin %d: bracketing curves should collapse", k)
		}
	}
}

func TestRemoveOutliersDiscardsDeviantCurve(t *testing.T) {
	levels := []float64{1.9, 2.0, 2.1, 2.0, 1.95, 2.05, 20}
	segments := make([]spectral.Segment, len(levels))
	for i, a := range levels {
		segments[i] = flatSegment(i, 1, a, a)
	}
	res := flatResult(segments...)

	set, err := Combine(res, DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	kept, windows, err := RemoveOutliers(set, windowsFor(res), DefaultConfig())
	if err != nil {
		t.Fatalf("RemoveOutliers: %v", err)
	}

	if len(kept.PerWindow) != 6 {
		t.Fatalf("kept %d curves, want 6", len(kept.PerWindow))
	}
	for _, idx := range kept.WindowIndices {
		if idx == 6 {
			t.Fatal("deviant curve survived")
		}
	}
	tagged := false
	for _, w := range windows {
		if w.Index != 6 {
			if !w.Usable() {
				t.Fatalf("window %d wrongly rejected", w.Index)
			}
			continue
		}
		for _, r := range w.Reasons {
			if r == hvsr.ReasonCurveOutlier {
				tagged = true
			}
		}
	}
	if !tagged {
		t.Fatal("deviant window not tagged")
	}

	// Without the tenfold curve the aggregate settles near 2.
	for k, v := range kept.Aggregate.Values {
		if v < 1.9 || v > 2.1 {
			t.Fatalf("bin %d aggregate = %v after removal", k, v)
		}
	}

	// The post-removal aggregate must match the aggregate of the six
	// clean curves combined on their own.
	clean, err := Combine(flatResult(segments[:6]...), DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	for k := range clean.Aggregate.Values {
		if math.Abs(kept.Aggregate.Values[k]-clean.Aggregate.Values[k]) > 1e-12 {
			t.Fatalf("bin %d aggregate = %v after removal, %v without the injected curve",
				k, kept.Aggregate.Values[k], clean.Aggregate.Values[k])
		}
		if math.Abs(kept.Aggregate.LogStdDev[k]-clean.Aggregate.LogStdDev[k]) > 1e-12 {
			t.Fatalf("bin %d log deviation = %v after removal, %v without the injected curve",
				k, kept.Aggregate.LogStdDev[k], clean.Aggregate.LogStdDev[k])
		}
	}
}

func TestRemoveOutliersIdempotent(t *testing.T) {
	levels := []float64{1.9, 2.0, 2.1, 2.0, 1.95, 2.05}
	segments := make([]spectral.Segment, len(levels))
	for i, a := range levels {
		segments[i] = flatSegment(i, 1, a, a)
	}
	res := flatResult(segments...)

	set, err := Combine(res, DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	kept, windows, err := RemoveOutliers(set, windowsFor(res), DefaultConfig())
	if err != nil {
		t.Fatalf("RemoveOutliers: %v", err)
	}
	if len(kept.PerWindow) != len(set.PerWindow) {
		t.Fatalf("removed %d curves from an outlier-free ensemble", len(set.PerWindow)-len(kept.PerWindow))
	}
	for _, w := range windows {
		if !w.Usable() {
			t.Fatalf("window %d rejected without an outlier", w.Index)
		}
	}
}

func TestRemoveOutliersDegenerate(t *testing.T) {
	segments := []spectral.Segment{
		flatSegment(0, 1, 2, 2),
		flatSegment(1, 1, 2, 2),
		flatSegment(2, 1, 2, 2),
		flatSegment(3, 1, 2, 2),
		flatSegment(4, 1, 20, 20),
	}
	res := flatResult(segments...)

	set, err := Combine(res, DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	// A threshold this tight strips the identical curves along with the
	// deviant one, which must surface as a degenerate ensemble rather
	// than an empty result.
	kept, _, err := RemoveOutliers(set, windowsFor(res), ApplyOptions(WithOutlierCurveStd(0.3)))
	if !errors.Is(err, hvsr.ErrDegenerateCurve) {
		t.Fatalf("expected ErrDegenerateCurve, got %v", err)
	}
	if len(kept.PerWindow) != len(set.PerWindow) {
		t.Fatal("degenerate removal must hand back the input ensemble")
	}
}

func TestRemoveOutliersSkipsSmallEnsembles(t *testing.T) {
	res := flatResult(flatSegment(0, 1, 2, 2), flatSegment(1, 1, 8, 8))

	set, err := Combine(res, DefaultConfig())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	kept, _, err := RemoveOutliers(set, windowsFor(res), DefaultConfig())
	if err != nil {
		t.Fatalf("RemoveOutliers: %v", err)
	}
	if len(kept.PerWindow) != 2 {
		t.Fatal("two-curve ensembles are below the removal threshold")
	}
}
