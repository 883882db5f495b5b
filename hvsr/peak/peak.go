// Package peak detects resonance peaks on an aggregated ratio curve
// and scores them against the SESAME reliability and clarity criteria.
package peak

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-hvsr/dsp/core"
	"github.com/cwbudde/algo-hvsr/hvsr"
	"github.com/cwbudde/algo-hvsr/hvsr/curve"
)

// Status tracks a candidate through the scoring stages.
type Status int

const (
	StatusDetected Status = iota
	StatusScored
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDetected:
		return "detected"
	case StatusScored:
		return "scored"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Check is the outcome of one criterion, with the numbers that decided
// it rendered into Detail.
type Check struct {
	Name   string
	Pass   bool
	Detail string
}

// Candidate is one local maximum of the aggregate curve. SigmaF is the
// spread of the per-window peak frequencies around it, SigmaA the
// logarithmic amplitude spread of the ensemble at its frequency.
type Candidate struct {
	Index     int
	Frequency float64
	Amplitude float64
	Status    Status

	CurveChecks []Check
	PeakChecks  []Check
	CurvePassed int
	PeakPassed  int
	SigmaF      float64
	SigmaA      float64
}

// Reliable reports whether the candidate meets the acceptance quorum:
// every curve condition plus at least five of the six peak conditions.
func (c Candidate) Reliable() bool {
	return c.CurvePassed == len(c.CurveChecks) && c.PeakPassed >= len(c.PeakChecks)-1
}

// Result holds all scored candidates. BestIndex is -1 when nothing was
// detected; Policy records how the best candidate was chosen.
type Result struct {
	Candidates []Candidate
	BestIndex  int
	Policy     string
}

// Best returns the selected candidate, or false when none was detected.
func (r Result) Best() (Candidate, bool) {
	if r.BestIndex < 0 || r.BestIndex >= len(r.Candidates) {
		return Candidate{}, false
	}
	return r.Candidates[r.BestIndex], true
}

// Evaluate detects local maxima of the aggregate curve inside the
// configured range, scores each against the criteria and ranks them.
// windowSec is the analysis window length the curves were derived from.
func Evaluate(set curve.Set, windowSec float64, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(set.Frequencies) == 0 || len(set.PerWindow) == 0 {
		return Result{}, &hvsr.InsufficientDataError{Stage: "peak detection", Usable: len(set.PerWindow), Required: 1}
	}
	if windowSec <= 0 {
		return Result{}, hvsr.NewConfigurationError("window_length_sec", "must be > 0: %f", windowSec)
	}

	res := Result{BestIndex: -1}
	for _, idx := range localMaxima(set.Frequencies, set.Aggregate.Values, cfg.FreqRangeLow, cfg.FreqRangeHigh) {
		if set.Aggregate.Values[idx] <= cfg.WaterLevel {
			continue
		}
		res.Candidates = append(res.Candidates, Candidate{
			Index:     idx,
			Frequency: set.Frequencies[idx],
			Amplitude: set.Aggregate.Values[idx],
			Status:    StatusDetected,
		})
	}
	if len(res.Candidates) == 0 {
		res.Policy = "no candidate above the water level"
		return res, nil
	}

	for i := range res.Candidates {
		score(&res.Candidates[i], set, windowSec)
	}

	res.BestIndex = rank(res.Candidates, cfg.Selection)
	switch cfg.Selection {
	case SelectionScored:
		res.Policy = "most criteria passed, then amplitude, then lowest frequency"
	default:
		res.Policy = "largest amplitude, then lowest frequency"
	}
	return res, nil
}

// score fills in the curve and peak checks for one candidate.
func score(c *Candidate, set curve.Set, windowSec float64) {
	f0 := c.Frequency
	a0 := c.Amplitude
	freqs := set.Frequencies
	agg := set.Aggregate

	// Reliability of the curve around f0.
	minF0 := 10 / windowSec
	c.CurveChecks = append(c.CurveChecks, Check{
		Name:   "window length",
		Pass:   f0 > minF0,
		Detail: fmt.Sprintf("f0 = %.3f Hz vs 10/Lw = %.3f Hz", f0, minF0),
	})

	cycles := windowSec * float64(len(set.PerWindow)) * f0
	c.CurveChecks = append(c.CurveChecks, Check{
		Name:   "significant cycles",
		Pass:   cycles > 200,
		Detail: fmt.Sprintf("nc = %.0f vs 200", cycles),
	})

	sigmaLimit := 2.0
	if f0 < 0.5 {
		sigmaLimit = 3.0
	}
	maxFactor := 0.0
	for k, f := range freqs {
		if f < f0/2 || f > 2*f0 {
			continue
		}
		factor := math.Pow(10, agg.LogStdDev[k])
		if factor > maxFactor {
			maxFactor = factor
		}
	}
	c.CurveChecks = append(c.CurveChecks, Check{
		Name:   "amplitude scatter",
		Pass:   maxFactor > 0 && maxFactor < sigmaLimit,
		Detail: fmt.Sprintf("max sigma factor on [f0/2, 2f0] = %.3f vs %.1f", maxFactor, sigmaLimit),
	})

	// Clarity of the peak itself.
	belowOK, belowF := dropsBelowHalf(freqs, agg.Values, a0, f0/4, f0, true)
	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "trough below",
		Pass:   belowOK,
		Detail: fmt.Sprintf("A < A0/2 at %.3f Hz in [f0/4, f0)", belowF),
	})

	aboveOK, aboveF := dropsBelowHalf(freqs, agg.Values, a0, f0, 4*f0, false)
	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "trough above",
		Pass:   aboveOK,
		Detail: fmt.Sprintf("A < A0/2 at %.3f Hz in (f0, 4f0]", aboveF),
	})

	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "amplitude",
		Pass:   a0 > 2,
		Detail: fmt.Sprintf("A0 = %.3f vs 2", a0),
	})

	plusF, plusOK := nearestPeakFrequency(freqs, agg.Plus, f0)
	minusF, minusOK := nearestPeakFrequency(freqs, agg.Minus, f0)
	stable := plusOK && minusOK &&
		math.Abs(plusF-f0) <= 0.05*f0 &&
		math.Abs(minusF-f0) <= 0.05*f0
	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "peak stability",
		Pass:   stable,
		Detail: fmt.Sprintf("bracketing peaks at %.3f and %.3f Hz vs f0 = %.3f Hz +-5%%", plusF, minusF, f0),
	})

	c.SigmaF = windowPeakSpread(set, f0)
	epsilon := frequencyEpsilon(f0)
	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "frequency scatter",
		Pass:   c.SigmaF < epsilon*f0,
		Detail: fmt.Sprintf("sigma_f = %.3f Hz vs %.2f*f0 = %.3f Hz", c.SigmaF, epsilon, epsilon*f0),
	})

	c.SigmaA = agg.LogStdDev[c.Index]
	theta := amplitudeTheta(f0)
	c.PeakChecks = append(c.PeakChecks, Check{
		Name:   "amplitude scatter at f0",
		Pass:   c.SigmaA < theta,
		Detail: fmt.Sprintf("sigma_log = %.3f vs %.2f", c.SigmaA, theta),
	})

	for _, chk := range c.CurveChecks {
		if chk.Pass {
			c.CurvePassed++
		}
	}
	for _, chk := range c.PeakChecks {
		if chk.Pass {
			c.PeakPassed++
		}
	}

	c.Status = StatusScored
	if c.Reliable() {
		c.Status = StatusPassed
	} else {
		c.Status = StatusFailed
	}
}

// localMaxima returns the indices of strict local maxima with
// frequencies inside [low, high]. Axis endpoints never qualify.
func localMaxima(freqs, values []float64, low, high float64) []int {
	var out []int
	for k := 1; k < len(values)-1; k++ {
		if freqs[k] < low || freqs[k] > high {
			continue
		}
		if values[k] > values[k-1] && values[k] > values[k+1] {
			out = append(out, k)
		}
	}
	return out
}

// dropsBelowHalf reports whether the curve falls under half the peak
// amplitude somewhere in [low, high], excluding f0 itself on the side
// given by below.
func dropsBelowHalf(freqs, values []float64, a0, low, high float64, below bool) (bool, float64) {
	for k, f := range freqs {
		if f < low || f > high {
			continue
		}
		if below && f >= high {
			continue
		}
		if !below && f <= low {
			continue
		}
		if values[k] < a0/2 {
			return true, f
		}
	}
	return false, 0
}

// nearestPeakFrequency finds the local maximum of values closest in
// frequency to f0.
func nearestPeakFrequency(freqs, values []float64, f0 float64) (float64, bool) {
	best := 0.0
	found := false
	for k := 1; k < len(values)-1; k++ {
		if values[k] <= values[k-1] || values[k] <= values[k+1] {
			continue
		}
		if !found || math.Abs(freqs[k]-f0) < math.Abs(best-f0) {
			best = freqs[k]
			found = true
		}
	}
	return best, found
}

// windowPeakSpread collects, for every window curve, the frequency of
// the local maximum nearest to f0 and returns the sample deviation of
// those frequencies. Windows without any local maximum do not
// contribute.
func windowPeakSpread(set curve.Set, f0 float64) float64 {
	var peaks []float64
	for _, c := range set.PerWindow {
		if f, ok := nearestPeakFrequency(set.Frequencies, c, f0); ok {
			peaks = append(peaks, f)
		}
	}
	if len(peaks) < 2 {
		return 0
	}
	_, sigma := stat.MeanStdDev(peaks, nil)
	return sigma
}

// frequencyEpsilon is the SESAME tolerance on the per-window peak
// frequency spread, as a fraction of f0.
func frequencyEpsilon(f0 float64) float64 {
	switch {
	case f0 < 0.2:
		return 0.25
	case f0 < 0.5:
		return 0.20
	case f0 < 1:
		return 0.15
	case f0 < 2:
		return 0.10
	default:
		return 0.05
	}
}

// amplitudeTheta is the SESAME limit on the logarithmic amplitude
// deviation at f0.
func amplitudeTheta(f0 float64) float64 {
	switch {
	case f0 < 0.2:
		return 0.48
	case f0 < 0.5:
		return 0.40
	case f0 < 1:
		return 0.30
	case f0 < 2:
		return 0.25
	default:
		return 0.20
	}
}

// rank picks the best candidate. Amplitude ties resolve toward the
// lower frequency, which favors the fundamental over its harmonics.
func rank(candidates []Candidate, policy Selection) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if better(candidates[i], candidates[best], policy) {
			best = i
		}
	}
	return best
}

func better(a, b Candidate, policy Selection) bool {
	if policy == SelectionScored {
		sa := a.CurvePassed + a.PeakPassed
		sb := b.CurvePassed + b.PeakPassed
		if sa != sb {
			return sa > sb
		}
	}
	if !core.NearlyEqual(a.Amplitude, b.Amplitude, 1e-9) {
		return a.Amplitude > b.Amplitude
	}
	return a.Frequency < b.Frequency
}
