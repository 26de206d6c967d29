package oscillator

import (
	"math"
	"math/rand/v2"
)

// DefaultAgentJitter bounds the random offset (radians) applied to evenly
// spaced agent phases.
const DefaultAgentJitter = 0.4

// Oscillator is one abstract phase unit.
type Oscillator struct {
	Phase     float64   // radians in [0, 2π)
	Frequency float64   // natural frequency ω
	Amplitude float64   // weight in [0, 1]
	Embedding []float64 // nil for agents and live presets (uniform coupling)
}

// Ensemble is the ordered oscillator population plus simulation time.
//
// Ensemble is not safe for concurrent use. The engine that owns it
// serializes access.
type Ensemble struct {
	Oscillators []Oscillator
	Tokens      []string // source tokens; empty for agent and preset ensembles
	Time        float64  // accumulated integration time
	Steps       int64    // integration steps taken since construction

	sim [][]float64 // lazily built pairwise similarity, nil when uniform
}

// FromText builds a request ensemble from raw text.
//
// Tokens come from Tokenize, so the ensemble always has at least one
// oscillator. freqAdjust is added to every natural frequency (the profile's
// frequency adjustment). Initial phases are uniform on [0, 2π).
func FromText(text string, rng *rand.Rand, freqAdjust float64) *Ensemble {
	tokens := Tokenize(text)
	oscs := make([]Oscillator, len(tokens))
	for i, tok := range tokens {
		emb := Embed(tok)
		oscs[i] = Oscillator{
			Phase:     rng.Float64() * 2 * math.Pi,
			Frequency: BaseFrequency(tok, emb, freqAdjust),
			Amplitude: Amplitude(tok),
			Embedding: emb,
		}
	}
	return &Ensemble{Oscillators: oscs, Tokens: tokens}
}

// AgentPhases returns n evenly spaced phases, each offset by a uniform
// jitter in [-jitter, jitter) and wrapped into [0, 2π). n < 1 is treated as 1.
func AgentPhases(n int, jitter float64, rng *rand.Rand) []float64 {
	if n < 1 {
		n = 1
	}
	phases := make([]float64, n)
	for i := range phases {
		base := float64(i) / float64(n) * 2 * math.Pi
		j := (rng.Float64() - 0.5) * 2 * jitter
		phases[i] = Wrap(base + j)
	}
	return phases
}

// FromAgents builds the multi-agent ensemble: n unit-amplitude oscillators
// with unit frequency and jittered, evenly spaced phases.
func FromAgents(n int, jitter float64, rng *rand.Rand) *Ensemble {
	phases := AgentPhases(n, jitter, rng)
	oscs := make([]Oscillator, len(phases))
	for i, p := range phases {
		oscs[i] = Oscillator{Phase: p, Frequency: 1.0, Amplitude: 1.0}
	}
	return &Ensemble{Oscillators: oscs}
}

// Uniform builds a live-preset ensemble of n oscillators with frequencies
// ω0 + (u-½)σ and uniform random phases. n < 1 is treated as 1.
func Uniform(n int, omega0, sigma float64, rng *rand.Rand) *Ensemble {
	if n < 1 {
		n = 1
	}
	oscs := make([]Oscillator, n)
	for i := range oscs {
		oscs[i] = Oscillator{
			Phase:     rng.Float64() * 2 * math.Pi,
			Frequency: omega0 + (rng.Float64()-0.5)*sigma,
			Amplitude: 1.0,
		}
	}
	return &Ensemble{Oscillators: oscs}
}

// Len returns the number of oscillators.
func (e *Ensemble) Len() int {
	return len(e.Oscillators)
}

// Phases returns a copy of the current phases.
func (e *Ensemble) Phases() []float64 {
	out := make([]float64, len(e.Oscillators))
	for i, o := range e.Oscillators {
		out[i] = o.Phase
	}
	return out
}

// Amplitudes returns a copy of the oscillator amplitudes.
func (e *Ensemble) Amplitudes() []float64 {
	out := make([]float64, len(e.Oscillators))
	for i, o := range e.Oscillators {
		out[i] = o.Amplitude
	}
	return out
}

// Frequencies returns a copy of the natural frequencies.
func (e *Ensemble) Frequencies() []float64 {
	out := make([]float64, len(e.Oscillators))
	for i, o := range e.Oscillators {
		out[i] = o.Frequency
	}
	return out
}

// Uniform reports whether every pair couples with similarity 1, which is
// the case when no oscillator carries an embedding.
func (e *Ensemble) Uniform() bool {
	for _, o := range e.Oscillators {
		if o.Embedding != nil {
			return false
		}
	}
	return true
}

// Similarity returns the coupling weight between oscillators i and j.
// Embeddings never change after construction, so the matrix is built once.
func (e *Ensemble) Similarity(i, j int) float64 {
	if e.sim == nil {
		if e.Uniform() {
			return 1
		}
		e.buildSimilarity()
	}
	return e.sim[i][j]
}

func (e *Ensemble) buildSimilarity() {
	n := len(e.Oscillators)
	e.sim = make([][]float64, n)
	for i := range e.sim {
		e.sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := Similarity(e.Oscillators[i].Embedding, e.Oscillators[j].Embedding)
			e.sim[i][j] = s
			e.sim[j][i] = s
		}
	}
}

// Resize grows or shrinks the ensemble to n oscillators, keeping the
// existing prefix. New oscillators get a random phase and frequency
// ω0 + (u-½)σ. Only meaningful for embedding-free ensembles.
func (e *Ensemble) Resize(n int, omega0, sigma float64, rng *rand.Rand) {
	if n < 1 {
		n = 1
	}
	if n <= len(e.Oscillators) {
		e.Oscillators = e.Oscillators[:n]
	} else {
		for len(e.Oscillators) < n {
			e.Oscillators = append(e.Oscillators, Oscillator{
				Phase:     rng.Float64() * 2 * math.Pi,
				Frequency: omega0 + (rng.Float64()-0.5)*sigma,
				Amplitude: 1.0,
			})
		}
	}
	e.sim = nil
}

// Clone returns a deep copy of the ensemble.
func (e *Ensemble) Clone() *Ensemble {
	c := &Ensemble{
		Oscillators: make([]Oscillator, len(e.Oscillators)),
		Tokens:      append([]string(nil), e.Tokens...),
		Time:        e.Time,
		Steps:       e.Steps,
	}
	for i, o := range e.Oscillators {
		if o.Embedding != nil {
			o.Embedding = append([]float64(nil), o.Embedding...)
		}
		c.Oscillators[i] = o
	}
	return c
}
