package engine

import (
	"errors"
	"math"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
)

// Parameter bounds.
const (
	MinCoupling        = 0.0
	MaxCoupling        = 5.0
	MinThreshold       = 0.1
	MaxThreshold       = 1.0
	MinPersonalization = 0.0
	MaxPersonalization = 1.0
)

// Params is the per-request parameter bundle.
type Params struct {
	Coupling        float64 `json:"coupling" yaml:"coupling"`               // K
	Threshold       float64 `json:"threshold" yaml:"threshold"`             // τ
	Personalization float64 `json:"personalization" yaml:"personalization"` // P
}

// DefaultParams returns K=0.5, τ=φ, P=0.3.
func DefaultParams() Params {
	return Params{
		Coupling:        0.5,
		Threshold:       gate.GoldenRatio,
		Personalization: 0.3,
	}
}

// Clamp bounds every field to its range. NaN takes the lower bound.
func (p Params) Clamp() Params {
	return Params{
		Coupling:        metrics.Clamp(p.Coupling, MinCoupling, MaxCoupling),
		Threshold:       metrics.Clamp(p.Threshold, MinThreshold, MaxThreshold),
		Personalization: metrics.Clamp(p.Personalization, MinPersonalization, MaxPersonalization),
	}
}

// Validate returns every out-of-range field as a *ParamError, joined.
func (p Params) Validate() error {
	var errs []error
	check := func(field string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, &ParamError{Field: field, Value: v, Min: lo, Max: hi})
		}
	}
	check("coupling", p.Coupling, MinCoupling, MaxCoupling)
	check("threshold", p.Threshold, MinThreshold, MaxThreshold)
	check("personalization", p.Personalization, MinPersonalization, MaxPersonalization)
	return errors.Join(errs...)
}
