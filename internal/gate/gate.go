// Package gate decides whether a synchronized ensemble may emit a response.
//
// A decision has four parts, evaluated in order:
//
//  1. an adaptive threshold derived from the nominal τ and recent history
//  2. three quality sub-checks on the raw snapshot
//  3. an amplification pipeline, run only when raw coherence is below τ·φ
//  4. the pass rule: adjusted ≥ adaptive threshold AND every sub-check holds
//
// Evaluate is a pure function of its inputs. It never fails; every value it
// reports is clamped into range.
package gate

import (
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/profile"
)

// GoldenRatio is φ = (√5 − 1)/2, the reference threshold and scaling factor.
const GoldenRatio = 0.6180339887498949

// Gate defaults.
const (
	DefaultThreshold   = GoldenRatio
	DefaultFloor       = 0.4
	DefaultCeil        = 0.9
	DefaultMinHistory  = 4
	DefaultWindow      = 10
	DefaultHighMean    = 0.8
	DefaultLowMean     = 0.4
	DefaultOrderMin    = 0.3
	DefaultEntropyMax  = 3.0
	DefaultVarianceMax = 3.141592653589793
)

// MaxAdaptiveThreshold keeps the adaptive threshold inside (0, 1) even for
// a nominal τ of 1.
const MaxAdaptiveThreshold = 0.99

// Subchecks are the three quality checks on the raw snapshot.
type Subchecks struct {
	OrderParameterOK bool `json:"order_parameter_ok"`
	EntropyOK        bool `json:"entropy_ok"`
	VarianceOK       bool `json:"variance_ok"`
}

// Passed reports whether every sub-check holds.
func (s Subchecks) Passed() bool {
	return s.OrderParameterOK && s.EntropyOK && s.VarianceOK
}

// StageTrace records one amplification stage.
type StageTrace struct {
	Name   string  `json:"name"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Decision is the outcome of one Evaluate call.
type Decision struct {
	Passed            bool         `json:"passed"`
	RawCoherence      float64      `json:"raw_coherence"`
	AdjustedCoherence float64      `json:"adjusted_coherence"`
	AdaptiveThreshold float64      `json:"adaptive_threshold"`
	QualityPassed     bool         `json:"quality_passed"`
	Amplified         bool         `json:"amplified"`
	Subchecks         Subchecks    `json:"subchecks"`
	Stages            []StageTrace `json:"stages,omitempty"`
}

// Gate holds the gating policy. Use New for the reference configuration.
type Gate struct {
	Threshold float64 // nominal τ in (0, 1]

	// Adaptive threshold policy. With at least MinHistory entries, a recent
	// mean above HighMean lowers τ by 10% (not below Floor) and a mean below
	// LowMean raises it by 10% (not above Ceil).
	Floor      float64
	Ceil       float64
	MinHistory int
	Window     int
	HighMean   float64
	LowMean    float64

	OrderMin    float64
	EntropyMax  float64
	VarianceMax float64

	// Pipeline builds the amplification stages for a phase set. Nil uses
	// DefaultPipeline.
	Pipeline func(phases []float64) []Stage
}

// New returns a gate with nominal threshold τ and reference defaults.
// A τ outside (0, 1] falls back to DefaultThreshold.
func New(threshold float64) *Gate {
	if !(threshold > 0 && threshold <= 1) {
		threshold = DefaultThreshold
	}
	return &Gate{
		Threshold:   threshold,
		Floor:       DefaultFloor,
		Ceil:        DefaultCeil,
		MinHistory:  DefaultMinHistory,
		Window:      DefaultWindow,
		HighMean:    DefaultHighMean,
		LowMean:     DefaultLowMean,
		OrderMin:    DefaultOrderMin,
		EntropyMax:  DefaultEntropyMax,
		VarianceMax: DefaultVarianceMax,
	}
}

// WithThreshold returns a copy of g using nominal threshold τ.
func (g *Gate) WithThreshold(threshold float64) *Gate {
	c := *g
	if threshold > 0 && threshold <= 1 {
		c.Threshold = threshold
	}
	return &c
}

// AdaptiveThreshold nudges τ from the recent mean coherence in h.
//
// The lowered value never exceeds τ and the raised value never drops below
// it, so a Floor above τ or a Ceil below τ cannot invert the direction. The
// result is capped at MaxAdaptiveThreshold.
func (g *Gate) AdaptiveThreshold(h *profile.History) float64 {
	return min(g.adapt(h), MaxAdaptiveThreshold)
}

func (g *Gate) adapt(h *profile.History) float64 {
	tau := g.Threshold
	if h.Len() < g.MinHistory {
		return tau
	}
	mean := h.MeanCoherence(g.Window)
	switch {
	case mean > g.HighMean:
		return min(tau, max(g.Floor, tau*0.9))
	case mean < g.LowMean:
		return max(tau, min(g.Ceil, tau*1.1))
	default:
		return tau
	}
}

// Check runs the three quality sub-checks against snap.
func (g *Gate) Check(snap metrics.Snapshot) Subchecks {
	return Subchecks{
		OrderParameterOK: snap.OrderParameter > g.OrderMin,
		EntropyOK:        snap.Entropy < g.EntropyMax,
		VarianceOK:       snap.PhaseVariance < g.VarianceMax,
	}
}

// Evaluate produces the gate decision for snap, the phases it was measured
// from, and the session history.
func (g *Gate) Evaluate(snap metrics.Snapshot, phases []float64, h *profile.History) Decision {
	raw := metrics.Clamp(snap.Coherence, 0, 1)
	d := Decision{
		RawCoherence:      raw,
		AdjustedCoherence: raw,
		AdaptiveThreshold: g.AdaptiveThreshold(h),
		Subchecks:         g.Check(snap),
	}
	d.QualityPassed = d.Subchecks.Passed()

	if raw < g.Threshold*GoldenRatio {
		build := g.Pipeline
		if build == nil {
			build = DefaultPipeline
		}
		d.AdjustedCoherence, d.Stages = Run(build(phases), raw)
		d.Amplified = true
	}

	d.Passed = d.QualityPassed && d.AdjustedCoherence >= d.AdaptiveThreshold
	return d
}
