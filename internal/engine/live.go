package engine

import (
	"math/rand/v2"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/integrator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/preset"
)

// LiveSnapshot is one frame of the live view. Theta is a copy; callers may
// keep it across ticks.
//
// C is the order parameter r itself, so R and W follow the wrapped-normal
// relation σθ = √(−2 ln r) rather than the request-mode composite score.
type LiveSnapshot struct {
	Theta     []float64 `json:"theta"`
	Order     float64   `json:"r"`
	Psi       float64   `json:"psi"`
	Coherence float64   `json:"C"` // = r
	Resonance float64   `json:"R"` // (K·N/2)·C²
	Wobble    float64   `json:"W"` // ω0·ρqp·√(−2 ln C)
	Time      float64   `json:"time"`
	Ticks     int64     `json:"ticks"`
}

// Live is the tick-mode engine behind the live view.
//
// Live is not safe for concurrent use. The render loop that ticks it owns it.
type Live struct {
	params preset.Params
	rng    *rand.Rand
	ens    *oscillator.Ensemble
	in     integrator.Integrator
	snap   LiveSnapshot
}

// LiveOption configures a Live engine.
type LiveOption func(*liveConfig)

type liveConfig struct {
	seed   uint64
	seeded bool
}

// WithLiveSeed makes phases, frequencies and noise reproducible.
func WithLiveSeed(seed uint64) LiveOption {
	return func(c *liveConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// NewLive builds a live ensemble from p.
func NewLive(p preset.Params, opts ...LiveOption) *Live {
	var cfg liveConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.seeded {
		cfg.seed = rand.Uint64()
	}

	l := &Live{rng: rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x2545f4914f6cdd1d))}
	l.params = normalizeLive(p)
	l.configure()
	l.ens = oscillator.Uniform(l.params.N, l.params.Omega0, l.params.Sigma, l.rng)
	l.refresh()
	return l
}

// Tick advances every phase by exactly one step and returns the new frame.
func (l *Live) Tick() LiveSnapshot {
	l.in.Advance(l.ens, integrator.Tick{})
	l.snap.Ticks++
	l.refresh()
	return l.Snapshot()
}

// Snapshot returns the current frame without advancing.
func (l *Live) Snapshot() LiveSnapshot {
	s := l.snap
	s.Theta = append([]float64(nil), l.snap.Theta...)
	return s
}

// Params returns the active parameters.
func (l *Live) Params() preset.Params {
	return l.params
}

// Reset rebuilds the ensemble from the active parameters and zeroes time.
func (l *Live) Reset() {
	l.ens = oscillator.Uniform(l.params.N, l.params.Omega0, l.params.Sigma, l.rng)
	l.snap.Ticks = 0
	l.refresh()
}

// RandomizePhases redraws every phase uniformly, keeping frequencies.
func (l *Live) RandomizePhases() {
	for i := range l.ens.Oscillators {
		l.ens.Oscillators[i].Phase = l.rng.Float64() * oscillator.TwoPi
	}
	l.refresh()
}

// UpdateParams switches to p without a reset: existing phases are kept, the
// ensemble grows or shrinks to p.N, and every natural frequency is redrawn
// from the new ω0 and σ.
func (l *Live) UpdateParams(p preset.Params) {
	l.params = normalizeLive(p)
	l.configure()

	l.ens.Resize(l.params.N, l.params.Omega0, l.params.Sigma, l.rng)
	for i := range l.ens.Oscillators {
		l.ens.Oscillators[i].Frequency = l.params.Omega0 + (l.rng.Float64()-0.5)*l.params.Sigma
	}
	l.refresh()
}

func (l *Live) configure() {
	p := l.params
	l.in = integrator.Integrator{
		Coupling:  p.K,
		Noise:     p.D,
		Drive:     p.Beta,
		DriveFreq: p.Fv,
		Dt:        p.Dt,
		Rand:      l.rng,
	}
}

// refresh recomputes every aggregate from the current phases.
func (l *Live) refresh() {
	snap := metrics.Measure(l.ens)
	c := snap.OrderParameter
	l.snap = LiveSnapshot{
		Theta:     l.ens.Phases(),
		Order:     snap.OrderParameter,
		Psi:       snap.MeanPhase,
		Coherence: c,
		Resonance: metrics.Resonance(l.params.K, l.ens.Len(), c),
		Wobble:    metrics.Wobble(l.params.Omega0, l.params.Rhoqp, c),
		Time:      l.ens.Time,
		Ticks:     l.snap.Ticks,
	}
}

// normalizeLive repairs parameters a hand-built Params may carry. Catalog
// presets already satisfy the schema.
func normalizeLive(p preset.Params) preset.Params {
	p.N = max(1, p.N)
	p.K = max(0, metrics.Finite(p.K, 0))
	p.Sigma = max(0, metrics.Finite(p.Sigma, 0))
	p.Omega0 = metrics.Finite(p.Omega0, 1)
	p.D = max(0, metrics.Finite(p.D, 0))
	p.Beta = metrics.Finite(p.Beta, 0)
	p.Fv = metrics.Finite(p.Fv, 0)
	p.Rhoqp = max(0, metrics.Finite(p.Rhoqp, 1))
	if !(p.Dt > 0) {
		p.Dt = integrator.DefaultDt
	}
	return p
}
