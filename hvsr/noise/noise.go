// Package noise partitions three-component traces into fixed-length windows
// and marks windows disturbed by transients, clipping, or sustained noise.
package noise

import (
	"math"

	"github.com/cwbudde/algo-hvsr/dsp/core"
	"github.com/cwbudde/algo-hvsr/dsp/trigger"
	"github.com/cwbudde/algo-hvsr/hvsr"
)

// Method selects one noise-removal sub-criterion.
type Method int

const (
	MethodAuto Method = iota // all automatic sub-criteria in sequence
	MethodSaturation
	MethodNoiseThreshold
	MethodAntitrigger
	MethodWarmupCooldown
	MethodManual
)

// Span is a rejected time span in seconds relative to the common start, used
// for manual window selection passthrough.
type Span struct {
	StartSec float64
	EndSec   float64
}

// Select partitions the trace set into windows of cfg.WindowLengthSec and
// applies the configured removal methods. Every window is returned, tagged
// with the reasons that rejected it; nothing is deleted.
//
// A trace set shorter than one window yields an InsufficientDataError.
func Select(set hvsr.TraceSet, cfg Config) ([]hvsr.Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	fs := set.SampleRate()
	winSamples := int(cfg.WindowLengthSec * fs)
	common := set.CommonLength()

	if winSamples > common {
		return nil, &hvsr.InsufficientDataError{Stage: "noise selection", Usable: 0, Required: 1}
	}

	windows := partition(common, winSamples)

	for _, m := range expandMethods(cfg.Methods) {
		switch m {
		case MethodSaturation:
			rejectSaturated(set, windows, cfg, common)
		case MethodNoiseThreshold:
			rejectNoisy(set, windows, cfg, common)
		case MethodAntitrigger:
			rejectTriggered(set, windows, cfg, common)
		case MethodWarmupCooldown:
			rejectEdges(windows, cfg, fs, common)
		case MethodManual:
			rejectManual(windows, cfg.ManualSpans, fs)
		}
	}

	return windows, nil
}

func expandMethods(methods []Method) []Method {
	for _, m := range methods {
		if m == MethodAuto {
			// Same sequence the automatic mode of the reference
			// processing applies.
			return []Method{MethodNoiseThreshold, MethodAntitrigger, MethodSaturation, MethodWarmupCooldown}
		}
	}
	return methods
}

func partition(totalSamples, winSamples int) []hvsr.Window {
	count := totalSamples / winSamples
	windows := make([]hvsr.Window, count)
	for i := range windows {
		windows[i] = hvsr.Window{
			Index:       i,
			StartSample: i * winSamples,
			EndSample:   (i + 1) * winSamples,
		}
	}
	return windows
}

// rejectSaturated rejects windows overlapping spans where the absolute
// amplitude stays above satPercent of the global peak for at least
// MinSpanSec. Clipped intervals sit near full scale long enough to form a
// span; isolated peak samples never reject a whole window.
func rejectSaturated(set hvsr.TraceSet, windows []hvsr.Window, cfg Config, common int) {
	fs := set.SampleRate()
	minSpan := int(cfg.MinSpanSec * fs)

	for _, tr := range set.Components() {
		data := tr.Data[:common]
		threshold := cfg.SatPercent * maxAbs(data)
		if threshold <= 0 {
			continue
		}

		for _, span := range thresholdSpans(data, threshold, minSpan) {
			for i := range windows {
				w := &windows[i]
				if w.Overlaps(span[0], span[1]) {
					w.Reject(hvsr.ReasonSaturation)
				}
			}
		}
	}
}

// rejectNoisy flags sustained noise: the long-term running mean of the raw
// signal is compared against noisePercent of its largest magnitude, and spans
// staying above that level for at least MinSpanSec reject the windows they
// overlap. Transient-free records keep a mean near zero, so only genuine
// offsets and sustained disturbances cross the threshold.
func rejectNoisy(set hvsr.TraceSet, windows []hvsr.Window, cfg Config, common int) {
	fs := set.SampleRate()
	ltaSamples := int(cfg.LTASec * fs)
	if ltaSamples < 1 {
		ltaSamples = 1
	}
	minSpan := int(cfg.MinSpanSec * fs)

	for _, tr := range set.Components() {
		envelope := movingAverage(tr.Data[:common], ltaSamples)
		threshold := cfg.NoisePercent * maxAbs(envelope)
		if threshold <= 0 {
			continue
		}

		for _, span := range thresholdSpans(envelope, threshold, minSpan) {
			for i := range windows {
				w := &windows[i]
				if w.Overlaps(span[0], span[1]) {
					w.Reject(hvsr.ReasonNoiseLevel)
				}
			}
		}
	}
}

// thresholdSpans returns half-open sample spans where |values| stays above
// threshold for at least minSpan samples.
func thresholdSpans(values []float64, threshold float64, minSpan int) [][2]int {
	var spans [][2]int

	start := -1
	for i, v := range values {
		above := math.Abs(v) > threshold
		if above && start < 0 {
			start = i
		}
		if !above && start >= 0 {
			if i-start >= minSpan {
				spans = append(spans, [2]int{start, i})
			}
			start = -1
		}
	}
	if start >= 0 && len(values)-start >= minSpan {
		spans = append(spans, [2]int{start, len(values)})
	}

	return spans
}

// rejectTriggered runs the STA/LTA antitrigger on each component and rejects
// windows overlapping any triggered span. The STA length is subtracted from
// each onset as a pre-trigger guard, matching the reference behavior.
func rejectTriggered(set hvsr.TraceSet, windows []hvsr.Window, cfg Config, common int) {
	fs := set.SampleRate()
	nsta := int(cfg.STASec * fs)
	nlta := int(cfg.LTASec * fs)
	minSpan := int(cfg.MinSpanSec * fs)
	guard := nsta

	for _, tr := range set.Components() {
		cf, err := trigger.ClassicSTALTA(tr.Data[:common], nsta, nlta)
		if err != nil {
			// Trace too short for the LTA window: nothing to trigger on.
			// Recorded as a non-event, not an error, per the propagation
			// policy for sub-window numeric conditions.
			continue
		}

		for _, span := range trigger.Onsets(cf, cfg.STALTAThreshHigh, cfg.STALTAThreshLow) {
			if span.Off-span.On < minSpan {
				continue
			}
			start := span.On - guard
			if start < 0 {
				start = 0
			}
			for i := range windows {
				w := &windows[i]
				if w.Overlaps(start, span.Off) {
					w.Reject(hvsr.ReasonAntitrigger)
				}
			}
		}
	}
}

// rejectEdges rejects windows overlapping the instrument warmup and cooldown
// guard bands at the trace edges.
func rejectEdges(windows []hvsr.Window, cfg Config, fs float64, common int) {
	warmup := int(cfg.WarmupSec * fs)
	cooldown := int(cfg.CooldownSec * fs)

	for i := range windows {
		w := &windows[i]
		if warmup > 0 && w.Overlaps(0, warmup) {
			w.Reject(hvsr.ReasonWarmupCooldown)
		}
		if cooldown > 0 && w.Overlaps(common-cooldown, common) {
			w.Reject(hvsr.ReasonWarmupCooldown)
		}
	}
}

func rejectManual(windows []hvsr.Window, spans []Span, fs float64) {
	for _, s := range spans {
		start := int(s.StartSec * fs)
		end := int(s.EndSec * fs)
		for i := range windows {
			w := &windows[i]
			if w.Overlaps(start, end) {
				w.Reject(hvsr.ReasonManual)
			}
		}
	}
}

func maxAbs(data []float64) float64 {
	m := 0.0
	for _, v := range data {
		av := math.Abs(v)
		if av > m {
			m = av
		}
	}
	return m
}

// movingAverage computes a centered moving average with the given window
// length, shrinking the window at the edges.
func movingAverage(data []float64, length int) []float64 {
	out := make([]float64, len(data))
	half := length / 2

	sum := 0.0
	lo, hi := 0, 0 // current half-open averaging span [lo, hi)
	for i := range data {
		wantLo := core.ClampInt(i-half, 0, len(data))
		wantHi := core.ClampInt(i+length-half, 0, len(data))

		for hi < wantHi {
			sum += data[hi]
			hi++
		}
		for lo < wantLo {
			sum -= data[lo]
			lo++
		}

		out[i] = sum / float64(hi-lo)
	}
	return out
}
