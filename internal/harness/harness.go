package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// frozenNow is the wall clock seen by every scenario.
var frozenNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario in a fresh session backed by an in-memory run
// log and returns the result. An error means the scenario could not be
// executed at all; failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context. Cancellation is
// checked between steps.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = "scenario-" + scenario.Name
	}

	eng := engine.New(
		engine.WithSeed(scenario.Seed),
		engine.WithSessionIDGenerator(engine.NewFixedGenerator(sessionID)),
		engine.WithRecorder(st),
		engine.WithNow(func() time.Time { return frozenNow }),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	base := engine.DefaultParams()
	if scenario.Params != nil {
		base = *scenario.Params
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scenario %s interrupted at step %d: %w", scenario.Name, i, err)
		}

		p := base
		if step.Params != nil {
			p = *step.Params
		}

		res := eng.Process(ctx, step.Prompt, p)
		result.Trace = append(result.Trace, traceEvent(i, step.Prompt, res))

		for _, msg := range checkExpect(i, step.Expect, res) {
			result.AddError(msg)
		}
	}

	runs, err := st.CountRuns(ctx, eng.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to count recorded runs: %w", err)
	}
	result.RunsRecorded = runs
	result.HistoryLen = len(eng.History())
	result.AdaptiveThreshold = eng.AdaptiveThreshold(base.Threshold)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func traceEvent(i int, prompt string, res engine.Result) TraceEvent {
	return TraceEvent{
		Step:              i,
		Seq:               res.Seq,
		Prompt:            prompt,
		TokenCount:        res.TokenCount,
		Iterations:        res.Iterations,
		Converged:         res.Converged,
		Passed:            res.Decision.Passed,
		QualityPassed:     res.Decision.QualityPassed,
		Amplified:         res.Decision.Amplified,
		RawCoherence:      res.RawCoherence,
		Coherence:         res.Coherence,
		AdaptiveThreshold: res.Decision.AdaptiveThreshold,
		Resonance:         res.Resonance,
		Entropy:           res.Entropy,
		OrderParameter:    res.OrderParameter,
		PhaseVariance:     res.PhaseVariance,
		Phases:            res.Phases,
	}
}

func checkExpect(i int, e *Expect, res engine.Result) []string {
	if e == nil {
		return nil
	}
	var errs []string
	if e.Passed != nil && *e.Passed != res.Decision.Passed {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected passed=%t, got %t (coherence %.4f, threshold %.4f)",
			i, *e.Passed, res.Decision.Passed, res.Coherence, res.Decision.AdaptiveThreshold))
	}
	if e.MinCoherence != nil && res.Coherence < *e.MinCoherence {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected coherence >= %.4f, got %.4f", i, *e.MinCoherence, res.Coherence))
	}
	if e.MaxCoherence != nil && res.Coherence > *e.MaxCoherence {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected coherence <= %.4f, got %.4f", i, *e.MaxCoherence, res.Coherence))
	}
	if e.TokenCount != nil && res.TokenCount != *e.TokenCount {
		errs = append(errs, fmt.Sprintf("steps[%d]: expected %d tokens, got %d", i, *e.TokenCount, res.TokenCount))
	}
	return errs
}
