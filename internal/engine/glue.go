package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// Bracket runes marking tokens of a coherent prompt.
const (
	enhanceOpen  = "⟨"
	enhanceClose = "⟩"
)

// Preprocessing is the synchronized view of a prompt handed to an external
// generator before a response exists.
type Preprocessing struct {
	Prompt         string             `json:"-"`
	Coherence      float64            `json:"coherence"`
	Resonance      float64            `json:"resonance"`
	Entropy        float64            `json:"entropy"`
	OrderParameter float64            `json:"order_parameter"`
	Phases         []float64          `json:"phases"`
	Tokens         []string           `json:"tokens"`
	EnhancedTokens []string           `json:"enhanced_tokens"`
	SyncMap        map[string]float64 `json:"sync_map"`
	Snapshot       metrics.Snapshot   `json:"snapshot"`
}

// Preprocess synchronizes a prompt without gating it or touching history.
// The session ensemble is replaced by the prompt's ensemble.
func (e *Engine) Preprocess(prompt string, params Params) Preprocessing {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := params.Clamp()
	prof := e.adapter.Profile()
	ens := oscillator.FromText(prompt, e.rng, prof.FrequencyAdjustment())
	e.integrate(ens, p, prof)
	e.ensemble = ens

	snap := metrics.Measure(ens)
	phases := ens.Phases()

	pre := Preprocessing{
		Prompt:         prompt,
		Coherence:      snap.Coherence,
		Resonance:      snap.OrderParameter,
		Entropy:        snap.Entropy,
		OrderParameter: snap.OrderParameter,
		Phases:         phases,
		Tokens:         append([]string(nil), ens.Tokens...),
		EnhancedTokens: make([]string, len(ens.Tokens)),
		SyncMap:        make(map[string]float64, len(ens.Tokens)),
		Snapshot:       snap,
	}
	coherent := snap.Coherence > gate.GoldenRatio
	for i, tok := range ens.Tokens {
		pre.SyncMap[tok] = phases[i]
		if coherent {
			tok = enhanceOpen + tok + enhanceClose
		}
		pre.EnhancedTokens[i] = tok
	}
	return pre
}

// EnhancePrompt wraps prompt with its synchronization context for a
// downstream generator.
func EnhancePrompt(prompt string, pre Preprocessing) string {
	level := "moderate"
	if pre.Coherence > gate.GoldenRatio {
		level = "high"
	}
	sync := "moderately resonant"
	if pre.Resonance > 0.8 {
		sync = "highly resonant"
	}
	return fmt.Sprintf(
		"[Phase context: %s coherence (%.1f%%), %s synchronization, order parameter %.3f.]\n\n"+
			"%s\n\n"+
			"[Keep the response consistent with this coherence level.]",
		level, pre.Coherence*100, sync, pre.OrderParameter, prompt)
}

// Postprocess gates an externally generated response against the prompt it
// answers and records the outcome like Process does.
func (e *Engine) Postprocess(ctx context.Context, response string, pre Preprocessing, params Params) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	p := params.Clamp()
	tokens := oscillator.Tokenize(response)

	snap := pre.Snapshot
	snap.Coherence = ResponseCoherence(tokens, pre)
	dec := e.gate.WithThreshold(p.Threshold).Evaluate(snap, pre.Phases, e.adapter.History())
	resonance := ResonanceAlignment(tokens, pre)

	e.adapter.Record(dec.AdjustedCoherence, resonance)

	res := Result{
		SessionID:        e.id,
		Seq:              e.clock.Next(),
		Response:         response,
		Coherence:        dec.AdjustedCoherence,
		RawCoherence:     dec.RawCoherence,
		Resonance:        resonance,
		Entropy:          pre.Snapshot.Entropy,
		Phases:           append([]float64(nil), pre.Phases...),
		OrderParameter:   pre.Snapshot.OrderParameter,
		MeanPhase:        pre.Snapshot.MeanPhase,
		PhaseVariance:    pre.Snapshot.PhaseVariance,
		TokenCount:       len(tokens),
		Decision:         dec,
		ProcessingTimeMs: elapsedMs(start, e.now()),
	}
	e.record(ctx, store.KindRequest, pre.Prompt, p, res)
	return res
}

// ResponseCoherence scores how well response tokens reuse the prompt's
// tokens: exact matches count 1, substring matches 0.7. The score is scaled
// by the prompt coherence and capped at 1.
func ResponseCoherence(tokens []string, pre Preprocessing) float64 {
	var score, count float64
	for _, tok := range tokens {
		if _, ok := pre.SyncMap[tok]; ok {
			score++
			count++
			continue
		}
		for _, enhanced := range pre.EnhancedTokens {
			bare := strings.TrimSuffix(strings.TrimPrefix(enhanced, enhanceOpen), enhanceClose)
			if strings.Contains(bare, tok) || strings.Contains(tok, bare) {
				score += 0.7
				count++
			}
		}
	}
	base := 0.5
	if count > 0 {
		base = score / count
	}
	return metrics.Clamp(base*pre.Coherence*1.2, 0, 1)
}

// ResonanceAlignment scores a response by relative length, with a bonus for
// a coherent prompt and a penalty for a high-entropy one.
func ResonanceAlignment(tokens []string, pre Preprocessing) float64 {
	ratio := min(1.0, float64(len(tokens))/float64(max(1, len(pre.EnhancedTokens))))
	r := pre.Resonance * ratio
	if pre.Coherence > gate.GoldenRatio {
		r += 0.2
	}
	if pre.Entropy > 2.0 {
		r -= 0.1
	}
	return metrics.Clamp(r, 0, 1)
}
