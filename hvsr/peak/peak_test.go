package peak

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-hvsr/dsp/smooth"
	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/curve"
)

const testWindowSec = 60.0

// bumpCurve builds a unit-baseline curve with a log-normal bump of the
// given amplitude centered on f0.
func bumpCurve(freqs []float64, f0, amp float64) []float64 {
	out := make([]float64, len(freqs))
	for k, f := range freqs {
		x := math.Log10(f/f0) / 0.1
		out[k] = 1 + (amp-1)*math.Exp(-x*x)
	}
	return out
}

// bumpSet assembles a curve ensemble of nWindows jittered copies of a
// bump at f0, with a constant logarithmic spread.
func bumpSet(t *testing.T, f0, amp float64, nWindows int, logStd float64) curve.Set {
	t.Helper()

	freqs, err := smooth.LogSpace(0.5, 20, 200)
	if err != nil {
		t.Fatalf("LogSpace: %v", err)
	}

	set := curve.Set{Frequencies: freqs, Resampled: true}
	for i := 0; i < nWindows; i++ {
		scale := 1 + 0.02*float64(i%5)
		set.WindowIndices = append(set.WindowIndices, i)
		set.PerWindow = append(set.PerWindow, bumpCurve(freqs, f0, amp*scale))
	}

	values := bumpCurve(freqs, f0, amp)
	agg := curve.Aggregate{
		Values:    values,
		StdDev:    make([]float64, len(values)),
		LogStdDev: make([]float64, len(values)),
		Plus:      make([]float64, len(values)),
		Minus:     make([]float64, len(values)),
	}
	factor := math.Pow(10, logStd)
	for k := range values {
		agg.LogStdDev[k] = logStd
		agg.Plus[k] = values[k] * factor
		agg.Minus[k] = values[k] / factor
	}
	set.Aggregate = agg
	return set
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"inverted band", func(c *Config) { c.BandLowHz, c.BandHighHz = 10, 1 }, "hvsr_band"},
		{"range below band", func(c *Config) { c.FreqRangeLow = 0.01 }, "peak_freq_range"},
		{"range above band", func(c *Config) { c.FreqRangeHigh = 100 }, "peak_freq_range"},
		{"zero water level", func(c *Config) { c.WaterLevel = 0 }, "water_level"},
		{"unknown selection", func(c *Config) { c.Selection = Selection(99) }, "peak_selection"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			var cfgErr *hvsr.ConfigurationError
			if !errors.As(cfg.Validate(), &cfgErr) {
				t.Fatal("expected ConfigurationError")
			}
			if cfgErr.Option != tc.option {
				t.Fatalf("option = %q, want %q", cfgErr.Option, tc.option)
			}
		})
	}
}

func TestEvaluateEmptyEnsemble(t *testing.T) {
	_, err := Evaluate(curve.Set{}, testWindowSec, DefaultConfig())

	var insufficient *hvsr.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestEvaluateClearPeakPasses(t *testing.T) {
	set := bumpSet(t, 5, 6, 12, 0.1)

	res, err := Evaluate(set, testWindowSec, DefaultConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	best, ok := res.Best()
	if !ok {
		t.Fatal("no candidate found")
	}
	if math.Abs(best.Frequency-5) > 0.2 {
		t.Fatalf("peak at %v Hz, want about 5 Hz", best.Frequency)
	}
	if best.Status != StatusPassed {
		t.Fatalf("status = %v, want passed", best.Status)
	}
	if !best.Reliable() {
		t.Fatal("clear peak should satisfy the quorum")
	}
	if best.CurvePassed != 3 {
		for _, chk := range best.CurveChecks {
			t.Logf("%s: pass=%v %s", chk.Name, chk.Pass, chk.Detail)
		}
		t.Fatalf("curve conditions passed = %d, want 3", best.CurvePassed)
	}
	if best.PeakPassed != 6 {
		for _, chk := range best.PeakChecks {
			t.Logf("%s: pass=%v %s", chk.Name, chk.Pass, chk.Detail)
		}
		t.Fatalf("peak conditions passed = %d, want 6", best.PeakPassed)
	}
	if best.SigmaF != 0 {
		t.Fatalf("sigma_f = %v for identically centered windows", best.SigmaF)
	}
	if best.SigmaA != 0.1 {
		t.Fatalf("sigma_a = %v, want 0.1", best.SigmaA)
	}
}

func TestEvaluateLowAmplitudeFailsClarity(t *testing.T) {
	// Above the water level but below the clarity threshold of 2.
	set := bumpSet(t, 5, 1.9, 12, 0.1)

	res, err := Evaluate(set, testWindowSec, DefaultConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	best, ok := res.Best()
	if !ok {
		t.Fatal("no candidate found")
	}
	failed := false
	for _, chk := range best.PeakChecks {
		if chk.Name == "amplitude" && !chk.Pass {
			failed = true
		}
	}
	if !failed {
		t.Fatal("amplitude condition should fail for A0 < 2")
	}
}

func TestEvaluateWideScatterFails(t *testing.T) {
	// A logarithmic spread of 0.45 exceeds both scatter limits at 5 Hz.
	set := bumpSet(t, 5, 6, 12, 0.45)

	res, err := Evaluate(set, testWindowSec, DefaultConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	best, ok := res.Best()
	if !ok {
		t.Fatal("no candidate found")
	}
	if best.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", best.Status)
	}
	names := map[string]bool{}
	for _, chk := range best.PeakChecks {
		if !chk.Pass {
			names[chk.Name] = true
		}
	}
	if !names["amplitude scatter at f0"] {
		t.Fatal("amplitude scatter condition should fail")
	}
}

func TestEvaluateNoCandidateBelowWaterLevel(t *testing.T) {
	set := bumpSet(t, 5, 1.5, 12, 0.1)

	res, err := Evaluate(set, testWindowSec, DefaultConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(res.Candidates) != 0 {
		t.Fatalf("found %d candidates below the water level", len(res.Candidates))
	}
	if _, ok := res.Best(); ok {
		t.Fatal("no best candidate expected")
	}
}

func TestEvaluateFreqRangeExcludesPeak(t *testing.T) {
	set := bumpSet(t, 5, 6, 12, 0.1)

	res, err := Evaluate(set, testWindowSec, ApplyOptions(WithFreqRange(8, 20)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Candidates) != 0 {
		t.Fatal("peak outside the candidate range must not be reported")
	}
}

func TestEvaluateTieBreaksTowardLowFrequency(t *testing.T) {
	freqs, err := smooth.LogSpace(0.5, 20, 200)
	if err != nil {
		t.Fatalf("LogSpace: %v", err)
	}

	// Two spikes of identical amplitude; the lower frequency wins.
	values := make([]float64, len(freqs))
	for k := range values {
		values[k] = 1
	}
	var loBin, hiBin int
	for k, f := range freqs {
		if f <= 2 {
			loBin = k
		}
		if f <= 8 {
			hiBin = k
		}
	}
	values[loBin] = 6
	values[hiBin] = 6

	set := curve.Set{Frequencies: freqs, Resampled: true}
	for i := 0; i < 6; i++ {
		c := make([]float64, len(values))
		copy(c, values)
		set.WindowIndices = append(set.WindowIndices, i)
		set.PerWindow = append(set.PerWindow, c)
	}
	set.Aggregate = curve.Aggregate{
		Values:    values,
		StdDev:    make([]float64, len(values)),
		LogStdDev: make([]float64, len(values)),
		Plus:      append([]float64(nil), values...),
		Minus:     append([]float64(nil), values...),
	}

	res, err := Evaluate(set, testWindowSec, DefaultConfig())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("found %d candidates, want 2", len(res.Candidates))
	}
	best, ok := res.Best()
	if !ok {
		t.Fatal("no best candidate")
	}
	if best.Frequency != freqs[loBin] {
		t.Fatalf("best at %v Hz, want the lower spike at %v Hz", best.Frequency, freqs[loBin])
	}
}

func TestEvaluateInvalidWindowLength(t *testing.T) {
	set := bumpSet(t, 5, 6, 12, 0.1)

	_, err := Evaluate(set, 0, DefaultConfig())
	var cfgErr *hvsr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
