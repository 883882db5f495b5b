package spectral

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-hvsr/dsp/core"
	"github.com/cwbudde/algo-hvsr/dsp/signal"
	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/noise"
)

const testRate = 40.0

func noisySet(t *testing.T, seconds float64, seedBase int64) hvsr.TraceSet {
	t.Helper()

	samples := int(seconds * testRate)
	components := []hvsr.Component{hvsr.ComponentVertical, hvsr.ComponentNorth, hvsr.ComponentEast}

	traces := make([]hvsr.Trace, 0, 3)
	for i, c := range components {
		gen := signal.NewGeneratorWithOptions(
			[]core.ProcessorOption{core.WithSampleRate(testRate)},
			signal.WithSeed(seedBase+int64(i)),
		)
		data, err := gen.WhiteNoise(1, samples)
		if err != nil {
			t.Fatalf("WhiteNoise: %v", err)
		}
		traces = append(traces, hvsr.Trace{Component: c, SampleRate: testRate, Data: data})
	}

	set, err := hvsr.NewTraceSet(traces...)
	if err != nil {
		t.Fatalf("NewTraceSet: %v", err)
	}
	return set
}

func selectWindows(t *testing.T, set hvsr.TraceSet, lengthSec float64) []hvsr.Window {
	t.Helper()

	windows, err := noise.Select(set, noise.ApplyOptions(
		noise.WithWindowLength(lengthSec),
		noise.WithMethods(noise.MethodSaturation),
	))
	if err != nil {
		t.Fatalf("noise.Select: %v", err)
	}
	return windows
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"segment too short", func(c *Config) { c.SegmentLength = 1 }},
		{"overlap full", func(c *Config) { c.Overlap = 1 }},
		{"outlier std zero", func(c *Config) { c.OutlierStd = 0 }},
		{"bin fraction above 1", func(c *Config) { c.OutlierBinFraction = 1.5 }},
		{"min windows zero", func(c *Config) { c.MinWindowCount = 0 }},
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

func TestEstimateSharedAxis(t *testing.T) {
	set := noisySet(t, 300, 1)
	windows := selectWindows(t, set, 30)

	res, err := Estimate(set, windows, DefaultConfig())
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	binCount := hvsr.DefaultPSDSegmentLength / 2
	if len(res.Frequencies) != binCount {
		t.Fatalf("axis length = %d, want %d", len(res.Frequencies), binCount)
	}
	for _, seg := range res.Segments {
		for c, p := range seg.PowerDB {
			if len(p) != binCount {
				t.Fatalf("window %d component %s: %d bins, want %d", seg.WindowIndex, c, len(p), binCount)
			}
		}
	}

	// Axis covers (0, Nyquist], DC excluded.
	if res.Frequencies[0] <= 0 {
		t.Fatalf("first bin %v, want > 0", res.Frequencies[0])
	}
	if res.Frequencies[binCount-1] != testRate/2 {
		t.Fatalf("last bin %v, want Nyquist %v", res.Frequencies[binCount-1], testRate/2)
	}
}

func TestEstimateMonotonicRejection(t *testing.T) {
	set := noisySet(t, 300, 5)
	windows := selectWindows(t, set, 30)

	// Pre-reject one window to confirm it is never un-rejected.
	windows[3].Reject(hvsr.ReasonManual)
	usableBefore := map[int]bool{}
	for _, w := range windows {
		usableBefore[w.Index] = w.Usable()
	}

	res, err := Estimate(set, windows, DefaultConfig())
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	for _, w := range res.Windows {
		if w.Usable() && !usableBefore[w.Index] {
			t.Fatalf("window %d was un-rejected", w.Index)
		}
	}

	// Input windows must not be mutated.
	if !windows[0].Usable() {
		t.Fatal("input windows mutated")
	}
	for _, seg := range res.Segments {
		if seg.WindowIndex == 3 {
			t.Fatal("rejected window produced a segment")
		}
	}
}

func TestEstimateInsufficientWindows(t *testing.T) {
	set := noisySet(t, 300, 9)
	windows := selectWindows(t, set, 30)
	for i := range windows {
		windows[i].Reject(hvsr.ReasonManual)
	}

	_, err := Estimate(set, windows, DefaultConfig())
	var insufficient *hvsr.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Usable != 0 || insufficient.Required != hvsr.DefaultMinWindowCount {
		t.Fatalf("unexpected counts: %+v", insufficient)
	}
}

func TestEstimateOutlierWindowRejected(t *testing.T) {
	set := noisySet(t, 420, 13)

	// Scale one window's samples far above the rest on every component so
	// its PSD deviates across most bins.
	lo, hi := 5*30*int(testRate), 6*30*int(testRate)
	for _, tr := range set.Components() {
		for i := lo; i < hi; i++ {
			tr.Data[i] *= 100
		}
	}

	windows := selectWindows(t, set, 30)
	// Keep the saturation rule from stealing the rejection.
	for i := range windows {
		windows[i].Reasons = nil
	}

	res, err := Estimate(set, windows, ApplyOptions(WithOutlierStd(2)))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	found := false
	for _, w := range res.Windows {
		if w.Index != 5 {
			continue
		}
		for _, r := range w.Reasons {
			if r == hvsr.ReasonPSDOutlier {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("amplified window not tagged as PSD outlier")
	}
}

func TestEstimateDeterministicAcrossWorkerCounts(t *testing.T) {
	set := noisySet(t, 300, 21)
	windows := selectWindows(t, set, 30)

	serial, err := Estimate(set, windows, ApplyOptions(WithWorkers(1)))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	parallel, err := Estimate(set, windows, ApplyOptions(WithWorkers(8)))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if len(serial.Segments) != len(parallel.Segments) {
		t.Fatalf("segment counts differ: %d != %d", len(serial.Segments), len(parallel.Segments))
	}
	for i := range serial.Segments {
		a := serial.Segments[i]
		b := parallel.Segments[i]
		if a.WindowIndex != b.WindowIndex {
			t.Fatalf("segment order differs at %d", i)
		}
		for c := range a.PowerDB {
			for k := range a.PowerDB[c] {
				if a.PowerDB[c][k] != b.PowerDB[c][k] {
					t.Fatalf("PSD differs at window %d, %s, bin %d", a.WindowIndex, c, k)
				}
			}
		}
	}
}
