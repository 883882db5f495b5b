// Package spectral computes per-window power spectral densities for the three
// components of an HVSR record and rejects statistical PSD outliers.
package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-hvsr/dsp/psd"
	"github.com/cwbudde/algo-hvsr/hvsr"
)

// Segment bundles the three per-component PSD estimates of one window.
type Segment struct {
	WindowIndex int
	PowerDB     map[hvsr.Component][]float64
}

// Result is the spectral estimator output. The frequency axis is shared by
// every segment; all downstream stages must preserve it or resample
// explicitly.
type Result struct {
	Frequencies []float64
	Segments    []Segment // usable windows only, ascending window index
	Windows     []hvsr.Window
	SampleRate  float64
	WindowSec   float64
}

// Estimate computes a PSD per component for every usable window and discards
// windows whose PSDs are statistical outliers.
//
// The returned windows are a tagged copy of the input: rejection reasons are
// only ever added, so the usable set after this stage is a subset of the
// usable set before it.
func Estimate(set hvsr.TraceSet, windows []hvsr.Window, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	out := hvsr.CloneWindows(windows)
	fs := set.SampleRate()

	usable := make([]int, 0, len(out))
	for i, w := range out {
		if w.Usable() {
			usable = append(usable, i)
		}
	}
	if len(usable) < cfg.MinWindowCount {
		return Result{}, &hvsr.InsufficientDataError{
			Stage:    "spectral estimation",
			Usable:   len(usable),
			Required: cfg.MinWindowCount,
		}
	}

	psdCfg := psd.ApplyOptions(
		psd.WithSampleRate(fs),
		psd.WithSegmentLength(cfg.SegmentLength),
		psd.WithOverlap(cfg.Overlap),
		psd.WithTaper(cfg.Taper),
	)

	segments := make([]Segment, len(usable))
	errs := make([]error, len(usable))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Windows are independent; results land in index-addressed slots, so
	// concurrent estimation stays deterministic.
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for slot, winIdx := range usable {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot, winIdx int) {
			defer wg.Done()
			defer func() { <-sem }()
			segments[slot], errs[slot] = estimateWindow(set, out[winIdx], psdCfg)
		}(slot, winIdx)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}

	axis, err := sharedAxis(segments, psdCfg)
	if err != nil {
		return Result{}, err
	}

	rejectOutliers(segments, out, usable, cfg)

	kept := make([]Segment, 0, len(segments))
	for slot, winIdx := range usable {
		if out[winIdx].Usable() {
			kept = append(kept, segments[slot])
		}
	}
	if len(kept) < cfg.MinWindowCount {
		return Result{}, &hvsr.InsufficientDataError{
			Stage:    "psd outlier rejection",
			Usable:   len(kept),
			Required: cfg.MinWindowCount,
		}
	}

	winSec := 0.0
	if len(out) > 0 {
		winSec = float64(out[0].Samples()) / fs
	}

	return Result{
		Frequencies: axis,
		Segments:    kept,
		Windows:     out,
		SampleRate:  fs,
		WindowSec:   winSec,
	}, nil
}

func estimateWindow(set hvsr.TraceSet, w hvsr.Window, cfg psd.Config) (Segment, error) {
	seg := Segment{
		WindowIndex: w.Index,
		PowerDB:     make(map[hvsr.Component][]float64, 3),
	}

	for _, tr := range set.Components() {
		est, err := psd.Welch(tr.Data[w.StartSample:w.EndSample], cfg)
		if err != nil {
			return Segment{}, fmt.Errorf("window %d, component %s: %w", w.Index, tr.Component, err)
		}
		seg.PowerDB[tr.Component] = est.PowerDB
	}

	return seg, nil
}

// sharedAxis rebuilds the common frequency axis and confirms every segment
// matches it.
func sharedAxis(segments []Segment, cfg psd.Config) ([]float64, error) {
	binCount := cfg.SegmentLength / 2
	axis := make([]float64, binCount)
	binHz := cfg.SampleRate / float64(cfg.SegmentLength)
	for k := range axis {
		axis[k] = float64(k+1) * binHz
	}

	for _, seg := range segments {
		for c, p := range seg.PowerDB {
			if len(p) != binCount {
				return nil, &hvsr.AlignmentError{
					Stage:   fmt.Sprintf("spectral estimation (window %d, %s)", seg.WindowIndex, c),
					WantLen: binCount,
					GotLen:  len(p),
				}
			}
		}
	}
	return axis, nil
}

// rejectOutliers drops whole windows whose PSD deviates from the per-bin mean
// by more than OutlierStd standard deviations on more than OutlierBinFraction
// of the bins, on any component.
func rejectOutliers(segments []Segment, windows []hvsr.Window, usable []int, cfg Config) {
	if len(segments) < 3 {
		// Mean and deviation are meaningless for one or two curves.
		return
	}

	binCount := len(segments[0].PowerDB[hvsr.ComponentVertical])
	column := make([]float64, len(segments))

	for _, c := range []hvsr.Component{hvsr.ComponentVertical, hvsr.ComponentNorth, hvsr.ComponentEast} {
		mean := make([]float64, binCount)
		sigma := make([]float64, binCount)
		for k := 0; k < binCount; k++ {
			for i, seg := range segments {
				column[i] = seg.PowerDB[c][k]
			}
			mean[k], sigma[k] = stat.MeanStdDev(column, nil)
		}

		for slot, seg := range segments {
			winIdx := usable[slot]
			if !windows[winIdx].Usable() {
				continue
			}

			deviant := 0
			for k := 0; k < binCount; k++ {
				if sigma[k] == 0 {
					continue
				}
				d := seg.PowerDB[c][k] - mean[k]
				if d < 0 {
					d = -d
				}
				if d > cfg.OutlierStd*sigma[k] {
					deviant++
				}
			}

			if float64(deviant) > cfg.OutlierBinFraction*float64(binCount) {
				windows[winIdx].Reject(hvsr.ReasonPSDOutlier)
			}
		}
	}
}
