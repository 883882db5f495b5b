package hvsr

import (
	"errors"
	"fmt"
)

// ErrDegenerateCurve signals that outlier-curve removal would discard every
// curve. It is recovered locally by keeping the pre-removal aggregate and is
// surfaced only as a flag on the run result.
var ErrDegenerateCurve = errors.New("outlier removal would discard all curves")

// ConfigurationError reports an invalid option or option combination. It is
// returned before any computation begins.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Option, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the named option.
func NewConfigurationError(option, format string, args ...any) error {
	return &ConfigurationError{Option: option, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports that too few usable windows survived a stage
// to produce a statistically meaningful aggregate.
type InsufficientDataError struct {
	Stage    string
	Usable   int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d usable windows, need at least %d", e.Stage, e.Usable, e.Required)
}

// AlignmentError reports spectral data reaching a stage with a frequency axis
// that differs from the shared axis of the run. It indicates an upstream
// resampling bug and is never silently repaired.
type AlignmentError struct {
	Stage   string
	WantLen int
	GotLen  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: frequency axis mismatch, want %d bins, got %d", e.Stage, e.WantLen, e.GotLen)
}
