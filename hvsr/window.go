package hvsr

// RejectReason names the rule that marked a window unusable. Reasons are
// additive: later stages append, they never overwrite.
type RejectReason string

const (
	ReasonSaturation     RejectReason = "saturation"
	ReasonNoiseLevel     RejectReason = "noise-threshold"
	ReasonAntitrigger    RejectReason = "stalta-antitrigger"
	ReasonWarmupCooldown RejectReason = "warmup-cooldown"
	ReasonManual         RejectReason = "manual-selection"
	ReasonPSDOutlier     RejectReason = "psd-outlier"
	ReasonCurveOutlier   RejectReason = "curve-outlier"
)

// Window is a fixed-length span of samples carved from the common time span
// of a trace set. Rejected windows are retained with their reasons for later
// inspection; they are never deleted.
type Window struct {
	Index       int
	StartSample int // inclusive
	EndSample   int // exclusive
	Reasons     []RejectReason
}

// Usable reports whether no rule has rejected the window.
func (w Window) Usable() bool {
	return len(w.Reasons) == 0
}

// Reject appends a reason unless it is already present.
func (w *Window) Reject(reason RejectReason) {
	for _, r := range w.Reasons {
		if r == reason {
			return
		}
	}
	w.Reasons = append(w.Reasons, reason)
}

// Samples returns the window length in samples.
func (w Window) Samples() int {
	return w.EndSample - w.StartSample
}

// Overlaps reports whether the window intersects the half-open sample span
// [start, end).
func (w Window) Overlaps(start, end int) bool {
	return start < w.EndSample && end > w.StartSample
}

// UsableCount returns the number of usable windows.
func UsableCount(windows []Window) int {
	n := 0
	for _, w := range windows {
		if w.Usable() {
			n++
		}
	}
	return n
}

// CloneWindows deep-copies a window slice so stages can tag their own copy
// without mutating upstream output.
func CloneWindows(windows []Window) []Window {
	out := make([]Window, len(windows))
	for i, w := range windows {
		out[i] = w
		out[i].Reasons = append([]RejectReason(nil), w.Reasons...)
	}
	return out
}
