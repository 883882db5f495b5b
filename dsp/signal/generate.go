// Package signal generates deterministic synthetic ground-motion records for
// tests, examples, and the demo mode of the CLI.
package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-hvsr/dsp/core"
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return &Generator{
		cfg:  core.ApplyProcessorOptions(opts...),
		seed: 1,
	}
}

// NewGeneratorWithOptions creates a generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sine sample rate must be > 0: %f", g.cfg.SampleRate)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Resonant generates ambient-style noise with a narrow-band resonance: white
// background plus a sine at resonanceHz whose phase is randomized per block to
// mimic incoherent site response.
func (g *Generator) Resonant(resonanceHz, resonanceAmp, noiseAmp float64, samples int) ([]float64, error) {
	if resonanceHz <= 0 {
		return nil, fmt.Errorf("resonance frequency must be > 0: %f", resonanceHz)
	}

	out, err := g.WhiteNoise(noiseAmp, samples)
	if err != nil {
		return nil, err
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("resonant sample rate must be > 0: %f", g.cfg.SampleRate)
	}

	rng := rand.New(rand.NewSource(g.seed + 1))
	step := 2 * math.Pi * resonanceHz / g.cfg.SampleRate
	block := g.cfg.BlockSize
	if block <= 0 {
		block = 1024
	}

	phase := 0.0
	for i := range out {
		if i%block == 0 {
			phase = rng.Float64() * 2 * math.Pi
		}
		out[i] += resonanceAmp * math.Sin(step*float64(i)+phase)
	}
	return out, nil
}

// Burst returns a copy of data with a high-amplitude transient inserted over
// [startSample, startSample+length).
func Burst(data []float64, startSample, length int, amplitude float64) ([]float64, error) {
	if startSample < 0 || length <= 0 || startSample+length > len(data) {
		return nil, fmt.Errorf("burst span [%d, %d) outside signal of %d samples",
			startSample, startSample+length, len(data))
	}

	out := make([]float64, len(data))
	copy(out, data)
	for i := startSample; i < startSample+length; i++ {
		out[i] += amplitude
	}
	return out, nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		av := math.Abs(v)
		if av > maxAbs {
			maxAbs = av
		}
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}
