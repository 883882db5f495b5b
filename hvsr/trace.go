package hvsr

import (
	"fmt"
	"time"
)

// Component identifies the axis of a ground-motion trace.
type Component int

const (
	ComponentVertical Component = iota // Z
	ComponentNorth                     // N, first horizontal
	ComponentEast                      // E, second horizontal
)

// String returns the conventional single-letter channel code.
func (c Component) String() string {
	switch c {
	case ComponentVertical:
		return "Z"
	case ComponentNorth:
		return "N"
	case ComponentEast:
		return "E"
	default:
		return "?"
	}
}

// Trace is a single-channel ground-motion record. It is read-only to the
// processing stages; windows reference it by sample index.
type Trace struct {
	Component  Component
	SampleRate float64
	StartTime  time.Time
	Data       []float64
}

// Duration returns the record length.
func (t Trace) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Data)) / t.SampleRate * float64(time.Second))
}

// Site carries acquisition metadata passed through to the run result. The
// processing stages do not interpret it.
type Site struct {
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
	Acquired  time.Time
}

// TraceSet is the fixed three-component input of one HVSR run.
type TraceSet struct {
	Vertical Trace
	North    Trace
	East     Trace
}

// NewTraceSet assembles a TraceSet from three traces in any order.
func NewTraceSet(traces ...Trace) (TraceSet, error) {
	if len(traces) != 3 {
		return TraceSet{}, fmt.Errorf("trace set requires exactly 3 traces: %d", len(traces))
	}

	var set TraceSet
	seen := map[Component]bool{}
	for _, tr := range traces {
		if seen[tr.Component] {
			return TraceSet{}, fmt.Errorf("duplicate %s component", tr.Component)
		}
		seen[tr.Component] = true

		switch tr.Component {
		case ComponentVertical:
			set.Vertical = tr
		case ComponentNorth:
			set.North = tr
		case ComponentEast:
			set.East = tr
		default:
			return TraceSet{}, fmt.Errorf("unknown component %d", tr.Component)
		}
	}

	return set, set.Validate()
}

// Validate checks the input contract: matching positive sample rates and
// non-empty data on every component.
func (s TraceSet) Validate() error {
	for _, tr := range s.Components() {
		if len(tr.Data) == 0 {
			return fmt.Errorf("%s component has no samples", tr.Component)
		}
		if tr.SampleRate <= 0 {
			return fmt.Errorf("%s component sample rate must be > 0: %f", tr.Component, tr.SampleRate)
		}
		if tr.SampleRate != s.Vertical.SampleRate {
			return fmt.Errorf("sample rate mismatch: %s has %f, Z has %f",
				tr.Component, tr.SampleRate, s.Vertical.SampleRate)
		}
	}
	return nil
}

// Components returns the three traces in Z, N, E order.
func (s TraceSet) Components() []Trace {
	return []Trace{s.Vertical, s.North, s.East}
}

// SampleRate returns the common sample rate.
func (s TraceSet) SampleRate() float64 {
	return s.Vertical.SampleRate
}

// CommonLength returns the number of samples shared by all three components.
func (s TraceSet) CommonLength() int {
	n := len(s.Vertical.Data)
	if len(s.North.Data) < n {
		n = len(s.North.Data)
	}
	if len(s.East.Data) < n {
		n = len(s.East.Data)
	}
	return n
}
