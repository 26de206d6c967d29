package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/integrator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/profile"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// Recorder persists completed runs. *store.Store implements it.
//
// Recording is best effort: a failing Recorder is logged and the run result
// is still returned.
type Recorder interface {
	WriteSession(ctx context.Context, sess store.Session) error
	WriteRun(ctx context.Context, run store.Run) error
}

// Result is the read-only record of one request-mode run.
type Result struct {
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
	Response  string `json:"response"`

	Coherence        float64   `json:"coherence"` // adjusted by the gate
	RawCoherence     float64   `json:"raw_coherence"`
	Resonance        float64   `json:"resonance"`
	Entropy          float64   `json:"entropy"`
	Phases           []float64 `json:"phases"`
	OrderParameter   float64   `json:"order_parameter"`
	MeanPhase        float64   `json:"mean_phase"`
	PhaseVariance    float64   `json:"phase_variance"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	TokenCount       int       `json:"token_count"`

	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Decision   gate.Decision `json:"decision"`
}

// State is a consistent view of the session's current ensemble. The
// snapshot is always measured from the phases returned alongside it.
type State struct {
	SessionID  string           `json:"session_id"`
	Tokens     []string         `json:"tokens"`
	Phases     []float64        `json:"phases"`
	Snapshot   metrics.Snapshot `json:"snapshot"`
	Steps      int64            `json:"steps"`
	Time       float64          `json:"time"`
	HistoryLen int              `json:"history_len"`
	Profile    profile.Profile  `json:"profile"`
}

// Engine is one request-mode session.
type Engine struct {
	mu sync.Mutex

	id       string
	idGen    SessionIDGenerator
	clock    *Clock
	rng      *rand.Rand
	seed     uint64
	seeded   bool
	gate     *gate.Gate
	adapter  *profile.Adapter
	capacity int

	convergence integrator.Convergence
	dt          float64
	jitter      float64

	recorder      Recorder
	sessionLogged bool
	logger        *slog.Logger
	now           func() time.Time

	ensemble *oscillator.Ensemble
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed makes every stochastic draw of the session reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

// WithConvergence sets the convergence-mode iteration cap and epsilon.
// Non-positive values keep the integrator defaults.
func WithConvergence(maxIters int, epsilon float64) Option {
	return func(e *Engine) {
		e.convergence = integrator.Convergence{MaxIters: maxIters, Epsilon: epsilon}
	}
}

// WithDt sets the integration time step.
func WithDt(dt float64) Option {
	return func(e *Engine) {
		e.dt = dt
	}
}

// WithHistory sets the history capacity.
func WithHistory(capacity int) Option {
	return func(e *Engine) {
		e.capacity = capacity
	}
}

// WithGate replaces the reference gate. The per-request threshold still
// comes from Params.
func WithGate(g *gate.Gate) Option {
	return func(e *Engine) {
		e.gate = g
	}
}

// WithRecorder logs every completed run to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithSessionIDGenerator sets the generator for the session id.
func WithSessionIDGenerator(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.idGen = g
	}
}

// WithSession resumes a recorded session: runs continue after lastSeq.
// History and profile start fresh.
func WithSession(id string, lastSeq int64) Option {
	return func(e *Engine) {
		e.id = id
		e.clock = NewClockAt(lastSeq)
	}
}

// WithAgentJitter sets the phase jitter used by RunAgents.
func WithAgentJitter(jitter float64) Option {
	return func(e *Engine) {
		e.jitter = jitter
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithNow overrides the wall clock used for processing time and session
// creation stamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a session engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		gate:     gate.New(gate.DefaultThreshold),
		capacity: profile.DefaultCapacity,
		dt:       integrator.DefaultDt,
		jitter:   oscillator.DefaultAgentJitter,
		idGen:    UUIDv7Generator{},
		now:      time.Now,
		convergence: integrator.Convergence{
			MaxIters: integrator.DefaultMaxIters,
			Epsilon:  integrator.DefaultEpsilon,
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.seeded {
		e.seed = rand.Uint64()
	}
	e.rng = rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	if e.id == "" {
		e.id = e.idGen.Generate()
	}
	if e.clock == nil {
		e.clock = NewClock()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.adapter = profile.NewAdapter(e.capacity)
	return e
}

// SessionID returns the session id.
func (e *Engine) SessionID() string {
	return e.id
}

// Seed returns the seed of the session's random source.
func (e *Engine) Seed() uint64 {
	return e.seed
}

// Process runs one prompt through the full request pipeline and records
// the outcome in the session history. It never fails.
//
// ctx is only used by the Recorder; the integration itself is bounded by
// the iteration cap.
func (e *Engine) Process(ctx context.Context, prompt string, params Params) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	p := params.Clamp()
	prof := e.adapter.Profile()

	ens := oscillator.FromText(prompt, e.rng, prof.FrequencyAdjustment())
	out := e.integrate(ens, p, prof)
	snap := metrics.Measure(ens)
	phases := ens.Phases()

	e.logger.Debug("phase synchronization complete",
		"session", e.id,
		"tokens", ens.Len(),
		"steps", out.Steps,
		"converged", out.Converged,
		"order_parameter", snap.OrderParameter,
		"coherence", snap.Coherence,
	)

	dec := e.gate.WithThreshold(p.Threshold).Evaluate(snap, phases, e.adapter.History())

	var (
		response  string
		resonance float64
	)
	if dec.Passed {
		response = passedResponse(prompt, snap, e.rng)
		resonance = snap.OrderParameter * (0.8 + 0.2*e.rng.Float64())
	} else {
		response = blockedResponse(dec, p.Threshold)
		resonance = dec.AdjustedCoherence * 0.5
	}
	resonance = metrics.Clamp(resonance, 0, 1)

	e.adapter.Record(dec.AdjustedCoherence, resonance)
	e.ensemble = ens

	res := Result{
		SessionID:        e.id,
		Seq:              e.clock.Next(),
		Response:         response,
		Coherence:        dec.AdjustedCoherence,
		RawCoherence:     dec.RawCoherence,
		Resonance:        resonance,
		Entropy:          snap.Entropy,
		Phases:           phases,
		OrderParameter:   snap.OrderParameter,
		MeanPhase:        snap.MeanPhase,
		PhaseVariance:    snap.PhaseVariance,
		TokenCount:       ens.Len(),
		Iterations:       out.Steps,
		Converged:        out.Converged,
		Decision:         dec,
		ProcessingTimeMs: elapsedMs(start, e.now()),
	}

	e.logger.Debug("coherence gate",
		"session", e.id,
		"seq", res.Seq,
		"raw", dec.RawCoherence,
		"adjusted", dec.AdjustedCoherence,
		"threshold", dec.AdaptiveThreshold,
		"quality", dec.QualityPassed,
		"passed", dec.Passed,
	)

	e.record(ctx, store.KindRequest, prompt, p, res)
	return res
}

// integrate runs the convergence loop with the profile captured before the
// run, so this run's outcome only biases the next one.
func (e *Engine) integrate(ens *oscillator.Ensemble, p Params, prof profile.Profile) integrator.Outcome {
	in := integrator.Integrator{
		Coupling:        p.Coupling,
		Personalization: p.Personalization,
		Dt:              e.dt,
		Bias: func(i int, osc oscillator.Oscillator) float64 {
			return prof.PhaseBias(i, osc.Amplitude)
		},
	}
	return in.Advance(ens, e.convergence)
}

// History returns a copy of the session history, oldest first.
func (e *Engine) History() []profile.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adapter.History().Entries()
}

// Profile returns the current adaptive profile.
func (e *Engine) Profile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adapter.Profile()
}

// AdaptiveThreshold returns the threshold the next request would face at
// nominal threshold τ.
func (e *Engine) AdaptiveThreshold(threshold float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.WithThreshold(threshold).AdaptiveThreshold(e.adapter.History())
}

// State measures the current ensemble. Before the first run, or after Reset,
// the state is empty.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		SessionID:  e.id,
		HistoryLen: e.adapter.History().Len(),
		Profile:    e.adapter.Profile(),
		Phases:     []float64{},
	}
	if e.ensemble == nil {
		return st
	}
	st.Tokens = append([]string(nil), e.ensemble.Tokens...)
	st.Phases = e.ensemble.Phases()
	st.Snapshot = metrics.Measure(e.ensemble)
	st.Steps = e.ensemble.Steps
	st.Time = e.ensemble.Time
	return st
}

// Reset drops the ensemble, history and profile together. The session id
// and clock are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensemble = nil
	e.adapter.Reset()
	e.logger.Debug("engine reset", "session", e.id)
}

func (e *Engine) record(ctx context.Context, kind, prompt string, p Params, res Result) {
	if e.recorder == nil {
		return
	}
	if !e.sessionLogged {
		sess := store.Session{ID: e.id, Kind: kind, CreatedAt: e.now()}
		if err := e.recorder.WriteSession(ctx, sess); err != nil {
			e.logger.Warn("recording session failed", "session", e.id, "error", err)
			return
		}
		e.sessionLogged = true
	}

	run := store.Run{
		SessionID:         res.SessionID,
		Seq:               res.Seq,
		PromptDigest:      store.PromptDigest(prompt),
		TokenCount:        res.TokenCount,
		Coupling:          p.Coupling,
		Threshold:         p.Threshold,
		Personalization:   p.Personalization,
		RawCoherence:      res.RawCoherence,
		Coherence:         res.Coherence,
		AdaptiveThreshold: res.Decision.AdaptiveThreshold,
		Resonance:         res.Resonance,
		Entropy:           res.Entropy,
		OrderParameter:    res.OrderParameter,
		PhaseVariance:     res.PhaseVariance,
		Passed:            res.Decision.Passed,
		QualityPassed:     res.Decision.QualityPassed,
		Iterations:        res.Iterations,
		Converged:         res.Converged,
		ProcessingMs:      res.ProcessingTimeMs,
		Phases:            res.Phases,
	}
	if err := e.recorder.WriteRun(ctx, run); err != nil {
		e.logger.Warn("recording run failed", "session", e.id, "seq", res.Seq, "error", err)
	}
}

func elapsedMs(start, end time.Time) float64 {
	ms := float64(end.Sub(start).Microseconds()) / 1000
	return max(0, ms)
}
