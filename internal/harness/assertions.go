package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertBounded:
		return assertBounded(result.Trace)
	case AssertHistoryLength:
		return assertCount(a.Type, a.Count, result.HistoryLen)
	case AssertPassedCount:
		return assertCount(a.Type, a.Count, result.PassedCount())
	case AssertRunsRecorded:
		return assertCount(a.Type, a.Count, result.RunsRecorded)
	case AssertThresholdAtMost:
		if result.AdaptiveThreshold > a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("adaptive threshold <= %.4f", a.Value),
				Actual:   fmt.Sprintf("%.4f", result.AdaptiveThreshold),
			}
		}
		return nil
	default:
		return &AssertionError{Type: a.Type, Expected: "a known assertion type", Actual: a.Type}
	}
}

func assertCount(typ string, want, got int) error {
	if want != got {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertBounded(trace []TraceEvent) error {
	maxEntropy := math.Log2(metrics.EntropyBins)
	for _, ev := range trace {
		unit := []struct {
			name string
			v    float64
		}{
			{"coherence", ev.Coherence},
			{"raw_coherence", ev.RawCoherence},
			{"resonance", ev.Resonance},
			{"order_parameter", ev.OrderParameter},
		}
		for _, u := range unit {
			if math.IsNaN(u.v) || u.v < 0 || u.v > 1 {
				return outOfRange(ev.Step, u.name, u.v, "[0, 1]")
			}
		}
		if math.IsNaN(ev.Entropy) || ev.Entropy < 0 || ev.Entropy > maxEntropy {
			return outOfRange(ev.Step, "entropy", ev.Entropy, fmt.Sprintf("[0, %g]", maxEntropy))
		}
		for i, theta := range ev.Phases {
			if math.IsNaN(theta) || theta < 0 || theta >= oscillator.TwoPi {
				return outOfRange(ev.Step, fmt.Sprintf("phases[%d]", i), theta, "[0, 2π)")
			}
		}
	}
	return nil
}

func outOfRange(step int, name string, v float64, want string) error {
	return &AssertionError{
		Type:     AssertBounded,
		Expected: fmt.Sprintf("steps[%d] %s in %s", step, name, want),
		Actual:   fmt.Sprintf("%g", v),
	}
}
