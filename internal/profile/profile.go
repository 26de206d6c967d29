// Package profile holds the per-session feedback state: a bounded history of
// past gate outcomes and a small adaptive profile that biases the next
// integration.
//
// The Adapter is written only after a gate decision completes and is read
// (never written) while phases integrate, so feedback always lands on the
// next invocation.
package profile

import (
	"math"
)

// Profile defaults.
const (
	DefaultCadence        = 0.5
	DefaultTone           = 0.5
	DefaultRegister       = 0.5
	DefaultAdaptationRate = 0.1

	// AdaptAbove is the coherence a result must exceed before the profile
	// moves at all.
	AdaptAbove = 0.7
)

// Profile is the adaptive per-session style vector. All fields stay in [0, 1].
type Profile struct {
	Cadence        float64 `json:"cadence" yaml:"cadence"`
	Tone           float64 `json:"tone" yaml:"tone"`
	Register       float64 `json:"register" yaml:"register"`
	AdaptationRate float64 `json:"adaptation_rate" yaml:"adaptation_rate"`
}

// Default returns the neutral starting profile.
func Default() Profile {
	return Profile{
		Cadence:        DefaultCadence,
		Tone:           DefaultTone,
		Register:       DefaultRegister,
		AdaptationRate: DefaultAdaptationRate,
	}
}

// FrequencyAdjustment is added to every natural frequency when a request
// ensemble is built.
func (p Profile) FrequencyAdjustment() float64 {
	return (p.Cadence-0.5)*0.2 + (p.Tone-0.5)*0.1
}

// PhaseBias is the personalization term for oscillator i. The integrator
// scales it by the personalization strength P.
func (p Profile) PhaseBias(i int, amplitude float64) float64 {
	position := math.Sin(float64(i)/10) * p.Register * 0.1
	return position + amplitude*p.Cadence*0.05
}

func (p Profile) clamped() Profile {
	p.Cadence = clamp01(p.Cadence)
	p.Tone = clamp01(p.Tone)
	p.Register = clamp01(p.Register)
	p.AdaptationRate = clamp01(p.AdaptationRate)
	return p
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
