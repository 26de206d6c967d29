// Package integrator advances oscillator phases under embedding-weighted
// Kuramoto coupling.
//
// One Integrator serves both scheduling contexts:
//
//	out := in.Advance(ens, integrator.Convergence{MaxIters: 100, Epsilon: 1e-3}) // request
//	out := in.Advance(ens, integrator.Tick{})                                   // one frame
//
// The phase rate of oscillator i is
//
//	ω_i + (K/N)·Σ_{j≠i} sim(e_i, e_j)·sin(θ_j − θ_i) + P·bias_i
//	    + β·sin(2π·fv·t + i) + √(2D)·(u − ½)
//
// where sim is cosine similarity of the token embeddings (1 for
// embedding-free ensembles). All rates are computed from the same phase
// snapshot before any phase moves, then phases are wrapped into [0, 2π).
package integrator

import (
	"math"
	"math/rand/v2"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
)

// Defaults for the request-scoped convergence run.
const (
	DefaultDt       = 0.01
	DefaultMaxIters = 100
	DefaultEpsilon  = 0.001
)

// BiasFunc returns the personalization bias for oscillator i.
// It must not mutate anything; the integrator may call it every step.
type BiasFunc func(i int, osc oscillator.Oscillator) float64

// Mode selects a termination policy. The concrete modes are Convergence
// and Tick.
type Mode interface {
	mode()
}

// Convergence iterates until the mean absolute phase change drops below
// Epsilon or MaxIters steps have run. MaxIters <= 0 uses DefaultMaxIters,
// so the loop is always bounded.
type Convergence struct {
	MaxIters int
	Epsilon  float64
}

// Tick performs exactly one step. Dt > 0 overrides the integrator's Dt for
// this step.
type Tick struct {
	Dt float64
}

func (Convergence) mode() {}
func (Tick) mode()        {}

// Outcome reports what one Advance call did.
type Outcome struct {
	Steps     int
	Converged bool
	MeanDelta float64 // mean absolute phase change of the last step
}

// Integrator holds the coupling parameters. The zero value is a pure
// free-running integrator with DefaultDt.
type Integrator struct {
	Coupling        float64 // K >= 0
	Personalization float64 // P >= 0
	Noise           float64 // D >= 0
	Drive           float64 // β
	DriveFreq       float64 // fv
	Dt              float64 // time step; <= 0 uses DefaultDt

	Bias BiasFunc   // optional personalization source
	Rand *rand.Rand // required only when Noise > 0

	rates  []float64
	before []float64
}

// Advance integrates ens according to mode and returns the outcome.
// An empty ensemble is returned untouched.
func (in *Integrator) Advance(ens *oscillator.Ensemble, mode Mode) Outcome {
	if ens.Len() == 0 {
		return Outcome{}
	}

	switch m := mode.(type) {
	case Tick:
		dt := in.dt()
		if m.Dt > 0 {
			dt = m.Dt
		}
		delta := in.step(ens, dt)
		return Outcome{Steps: 1, MeanDelta: delta}

	case Convergence:
		maxIters := m.MaxIters
		if maxIters <= 0 {
			maxIters = DefaultMaxIters
		}
		eps := m.Epsilon
		if eps <= 0 {
			eps = DefaultEpsilon
		}

		var out Outcome
		for out.Steps < maxIters {
			out.MeanDelta = in.step(ens, in.dt())
			out.Steps++
			if out.MeanDelta < eps {
				out.Converged = true
				break
			}
		}
		return out

	default:
		return Outcome{}
	}
}

func (in *Integrator) dt() float64 {
	if in.Dt > 0 {
		return in.Dt
	}
	return DefaultDt
}

// step advances every phase once and returns the mean absolute change.
func (in *Integrator) step(ens *oscillator.Ensemble, dt float64) float64 {
	n := ens.Len()
	in.rates = grow(in.rates, n)
	in.before = grow(in.before, n)

	for i := range ens.Oscillators {
		in.before[i] = ens.Oscillators[i].Phase
	}

	in.couplingTerms(ens)

	for i, osc := range ens.Oscillators {
		rate := osc.Frequency + in.rates[i]

		if in.Personalization != 0 && in.Bias != nil {
			rate += in.Personalization * in.Bias(i, osc)
		}
		if in.Drive != 0 {
			rate += in.Drive * math.Sin(2*math.Pi*in.DriveFreq*ens.Time+float64(i))
		}
		if in.Noise > 0 && in.Rand != nil {
			rate += math.Sqrt(2*in.Noise) * (in.Rand.Float64() - 0.5)
		}

		in.rates[i] = rate
	}

	var total float64
	for i := range ens.Oscillators {
		next := oscillator.Wrap(in.before[i] + in.rates[i]*dt)
		ens.Oscillators[i].Phase = next
		total += math.Abs(oscillator.AngleDiff(next, in.before[i]))
	}

	ens.Time += dt
	ens.Steps++
	return total / float64(n)
}

// couplingTerms fills in.rates with (K/N)·Σ_j sim_ij·sin(θ_j − θ_i).
// Embedding-free ensembles use the O(N) mean-field identity
// (1/N)·Σ_j sin(θ_j − θ_i) = r·sin(ψ − θ_i).
func (in *Integrator) couplingTerms(ens *oscillator.Ensemble) {
	n := ens.Len()
	if in.Coupling == 0 || n < 2 {
		for i := 0; i < n; i++ {
			in.rates[i] = 0
		}
		return
	}
	k := in.Coupling / float64(n)

	if ens.Uniform() {
		var sx, sy float64
		for _, theta := range in.before[:n] {
			sx += math.Cos(theta)
			sy += math.Sin(theta)
		}
		for i, theta := range in.before[:n] {
			// Σ_j sin(θ_j − θ_i) = sy·cos θ_i − sx·sin θ_i
			in.rates[i] = k * (sy*math.Cos(theta) - sx*math.Sin(theta))
		}
		return
	}

	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sum += ens.Similarity(i, j) * math.Sin(in.before[j]-in.before[i])
		}
		in.rates[i] = k * sum
	}
}

func grow(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
