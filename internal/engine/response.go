package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
)

// excerptLen bounds how much of the prompt a local response quotes.
const excerptLen = 50

// passedResponse builds the local response for a prompt that cleared the
// gate. No generation provider is involved.
func passedResponse(prompt string, snap metrics.Snapshot, rng *rand.Rand) string {
	pct := func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

	templates := []func() string{
		func() string {
			return fmt.Sprintf(
				"Synchronized at %s coherence: %s\n\n"+
					"Token phases locked into a common rhythm with low entropy, "+
					"so the prompt reads as one aligned thought.",
				pct(snap.Coherence), excerpt(prompt))
		},
		func() string {
			return fmt.Sprintf(
				"Phase analysis complete.\n\n"+
					"- Coherence: %s\n- Order parameter: %s\n- Mean phase: %.2f rad\n- Entropy: %.2f bits",
				pct(snap.Coherence), pct(snap.OrderParameter), snap.MeanPhase, snap.Entropy)
		},
		func() string {
			return fmt.Sprintf(
				"The coherence gate accepted this prompt. Order parameter %s "+
					"with phase variance %.3f indicates the tokens couple strongly.",
				pct(snap.OrderParameter), snap.PhaseVariance)
		},
	}
	return templates[rng.IntN(len(templates))]()
}

// blockedResponse explains why the gate held a prompt back.
func blockedResponse(d gate.Decision, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Coherence gate analysis\n\n")
	fmt.Fprintf(&b, "Current coherence: %.1f%%\n", d.AdjustedCoherence*100)
	fmt.Fprintf(&b, "Required threshold: %.1f%% (nominal %.3f)\n", d.AdaptiveThreshold*100, threshold)

	var failed []string
	if !d.Subchecks.OrderParameterOK {
		failed = append(failed, "order parameter too low")
	}
	if !d.Subchecks.EntropyOK {
		failed = append(failed, "phase entropy too high")
	}
	if !d.Subchecks.VarianceOK {
		failed = append(failed, "phase variance too wide")
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Quality checks failed: %s\n", strings.Join(failed, ", "))
	}

	b.WriteString("\nTry a stronger coupling, a lower threshold, or a more focused prompt.")
	return b.String()
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "..."
}
