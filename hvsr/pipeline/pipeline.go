// Package pipeline runs the full ratio analysis: window selection,
// spectral estimation, curve combination with outlier removal and peak
// scoring, wired together with shared configuration and logging.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/curve"
	"github.com/cwbudde/algo-hvsr/hvsr/noise"
	"github.com/cwbudde/algo-hvsr/hvsr/peak"
	"github.com/cwbudde/algo-hvsr/hvsr/spectral"
)

// Result is the outcome of one full run. Windows carries the final
// rejection tags of every analysis window; DegenerateRecovery is set
// when curve outlier removal would have emptied the ensemble and the
// unfiltered aggregate was kept instead.
type Result struct {
	Site       hvsr.Site
	SampleRate float64
	WindowSec  float64

	Windows       []hvsr.Window
	Frequencies   []float64
	WindowIndices []int
	PerWindow     [][]float64
	Aggregate     curve.Aggregate

	Candidates         []peak.Candidate
	BestIndex          int
	Policy             string
	DegenerateRecovery bool

	TotalWindows  int
	UsableWindows int
}

// Best returns the selected peak, or false when none was detected.
func (r Result) Best() (peak.Candidate, bool) {
	if r.BestIndex < 0 || r.BestIndex >= len(r.Candidates) {
		return peak.Candidate{}, false
	}
	return r.Candidates[r.BestIndex], true
}

// Run executes every stage on the trace set and returns the combined
// result. The first failing stage aborts the run.
func Run(site hvsr.Site, set hvsr.TraceSet, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if err := set.Validate(); err != nil {
		return Result{}, err
	}
	winSamples := int(cfg.Noise.WindowLengthSec * set.SampleRate())
	if cfg.Spectral.SegmentLength > winSamples {
		return Result{}, hvsr.NewConfigurationError("psd_segment_length",
			"segment of %d samples does not fit a %d sample window", cfg.Spectral.SegmentLength, winSamples)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("site", site.Name))

	windows, err := noise.Select(set, cfg.Noise)
	if err != nil {
		return Result{}, fmt.Errorf("window selection: %w", err)
	}
	usable := hvsr.UsableCount(windows)
	logger.Info("windows selected",
		zap.Int("total", len(windows)),
		zap.Int("usable", usable))

	specRes, err := spectral.Estimate(set, windows, cfg.Spectral)
	if err != nil {
		return Result{}, fmt.Errorf("spectral estimation: %w", err)
	}
	logger.Info("spectra estimated",
		zap.Int("windows", len(specRes.Segments)),
		zap.Int("bins", len(specRes.Frequencies)))

	curves, err := curve.Combine(specRes, cfg.Curve)
	if err != nil {
		return Result{}, fmt.Errorf("curve combination: %w", err)
	}

	kept, taggedWindows, err := curve.RemoveOutliers(curves, specRes.Windows, cfg.Curve)
	degenerate := false
	if err != nil {
		if !errors.Is(err, hvsr.ErrDegenerateCurve) {
			return Result{}, fmt.Errorf("curve outlier removal: %w", err)
		}
		degenerate = true
		logger.Warn("curve outlier removal degenerate, keeping unfiltered ensemble")
	}
	logger.Info("curves combined",
		zap.Int("kept", len(kept.PerWindow)),
		zap.Int("removed", len(curves.PerWindow)-len(kept.PerWindow)))

	peakRes, err := peak.Evaluate(kept, specRes.WindowSec, cfg.Peak)
	if err != nil {
		return Result{}, fmt.Errorf("peak scoring: %w", err)
	}
	if best, ok := peakRes.Best(); ok {
		logger.Info("peak selected",
			zap.Float64("frequency_hz", best.Frequency),
			zap.Float64("amplitude", best.Amplitude),
			zap.String("status", best.Status.String()))
	} else {
		logger.Info("no peak detected")
	}

	return Result{
		Site:               site,
		SampleRate:         set.SampleRate(),
		WindowSec:          specRes.WindowSec,
		Windows:            taggedWindows,
		Frequencies:        kept.Frequencies,
		WindowIndices:      kept.WindowIndices,
		PerWindow:          kept.PerWindow,
		Aggregate:          kept.Aggregate,
		Candidates:         peakRes.Candidates,
		BestIndex:          peakRes.BestIndex,
		Policy:             peakRes.Policy,
		DegenerateRecovery: degenerate,
		TotalWindows:       len(taggedWindows),
		UsableWindows:      hvsr.UsableCount(taggedWindows),
	}, nil
}

// Record is the flat export form of a result, one row per site.
type Record struct {
	Site      string
	Latitude  float64
	Longitude float64
	Elevation float64
	Acquired  time.Time

	WindowsTotal  int
	WindowsUsable int

	PeakFrequency float64
	PeakAmplitude float64
	SigmaF        float64
	SigmaA        float64
	Passed        bool

	WindowLengthOK  bool
	CycleCountOK    bool
	CurveScatterOK  bool
	TroughBelowOK   bool
	TroughAboveOK   bool
	AmplitudeOK     bool
	StabilityOK     bool
	FreqScatterOK   bool
	AmpScatterAt0OK bool
}

// Record flattens the result for tabular export. Without a detected
// peak the numeric peak fields stay zero and every flag is false.
func (r Result) Record() Record {
	rec := Record{
		Site:          r.Site.Name,
		Latitude:      r.Site.Latitude,
		Longitude:     r.Site.Longitude,
		Elevation:     r.Site.Elevation,
		Acquired:      r.Site.Acquired,
		WindowsTotal:  r.TotalWindows,
		WindowsUsable: r.UsableWindows,
	}

	best, ok := r.Best()
	if !ok {
		return rec
	}

	rec.PeakFrequency = best.Frequency
	rec.PeakAmplitude = best.Amplitude
	rec.SigmaF = best.SigmaF
	rec.SigmaA = best.SigmaA
	rec.Passed = best.Reliable()

	flags := []*bool{
		&rec.WindowLengthOK, &rec.CycleCountOK, &rec.CurveScatterOK,
		&rec.TroughBelowOK, &rec.TroughAboveOK, &rec.AmplitudeOK,
		&rec.StabilityOK, &rec.FreqScatterOK, &rec.AmpScatterAt0OK,
	}
	checks := append(append([]peak.Check(nil), best.CurveChecks...), best.PeakChecks...)
	for i, chk := range checks {
		if i < len(flags) {
			*flags[i] = chk.Pass
		}
	}
	return rec
}

// Report renders a human readable summary of the run.
func (r Result) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Site %s", r.Site.Name)
	if r.Site.Latitude != 0 || r.Site.Longitude != 0 {
		fmt.Fprintf(&b, " (%.5f, %.5f)", r.Site.Latitude, r.Site.Longitude)
	}
	fmt.Fprintf(&b, "\nWindows: %d usable of %d (%.0f s each)\n",
		r.UsableWindows, r.TotalWindows, r.WindowSec)
	if r.DegenerateRecovery {
		b.WriteString("Curve outlier removal was degenerate; unfiltered ensemble kept\n")
	}

	best, ok := r.Best()
	if !ok {
		b.WriteString("No peak detected\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Peak: %.3f Hz, amplitude %.3f (%s)\n", best.Frequency, best.Amplitude, best.Status)
	fmt.Fprintf(&b, "Curve conditions: %d of %d\n", best.CurvePassed, len(best.CurveChecks))
	for _, chk := range best.CurveChecks {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", passMark(chk.Pass), chk.Name, chk.Detail)
	}
	fmt.Fprintf(&b, "Peak conditions: %d of %d\n", best.PeakPassed, len(best.PeakChecks))
	for _, chk := range best.PeakChecks {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", passMark(chk.Pass), chk.Name, chk.Detail)
	}
	if best.Reliable() {
		b.WriteString("Verdict: reliable\n")
	} else {
		b.WriteString("Verdict: not reliable\n")
	}
	return b.String()
}

func passMark(pass bool) string {
	if pass {
		return "ok"
	}
	return "--"
}
