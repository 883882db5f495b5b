// Package trigger implements STA/LTA transient detection used to flag
// disturbed intervals in ambient-noise records.
package trigger

import "fmt"

// Span marks a half-open sample interval [On, Off) where a trigger was active.
type Span struct {
	On  int
	Off int
}

// ClassicSTALTA computes the classic STA/LTA characteristic function of a
// signal using squared amplitudes.
//
// nsta and nlta are the short- and long-term averaging lengths in samples,
// with 0 < nsta < nlta <= len(data). The first nlta samples of the output are
// zero, since the long-term average is not yet defined there.
func ClassicSTALTA(data []float64, nsta, nlta int) ([]float64, error) {
	if nsta <= 0 {
		return nil, fmt.Errorf("sta length must be > 0 samples: %d", nsta)
	}
	if nlta <= nsta {
		return nil, fmt.Errorf("lta length must be > sta length: %d <= %d", nlta, nsta)
	}
	if len(data) < nlta {
		return nil, fmt.Errorf("signal shorter than lta window: %d < %d", len(data), nlta)
	}

	n := len(data)
	cf := make([]float64, n)

	// Running sums of squared amplitude.
	var staSum, ltaSum float64
	for i := 0; i < n; i++ {
		sq := data[i] * data[i]

		staSum += sq
		if i >= nsta {
			staSum -= data[i-nsta] * data[i-nsta]
		}

		ltaSum += sq
		if i >= nlta {
			ltaSum -= data[i-nlta] * data[i-nlta]
		}

		if i < nlta {
			continue
		}

		lta := ltaSum / float64(nlta)
		if lta == 0 {
			continue
		}
		cf[i] = (staSum / float64(nsta)) / lta
	}

	return cf, nil
}

// Onsets scans a characteristic function and returns the spans where it
// crosses above threshOn, each span extending until the function falls back
// below threshOff.
//
// A span still active at the end of the signal is closed at len(cf).
func Onsets(cf []float64, threshOn, threshOff float64) []Span {
	var spans []Span

	active := false
	start := 0
	for i, v := range cf {
		if !active && v > threshOn {
			active = true
			start = i
			continue
		}
		if active && v < threshOff {
			spans = append(spans, Span{On: start, Off: i})
			active = false
		}
	}

	if active {
		spans = append(spans, Span{On: start, Off: len(cf)})
	}

	return spans
}
