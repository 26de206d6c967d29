package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

var fixedNow = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithSeed(7),
		WithSessionIDGenerator(NewFixedGenerator("sess-test")),
		WithNow(fixedNow),
		WithLogger(quietLogger()),
	}
	return New(append(base, opts...)...)
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type failingRecorder struct {
	calls int
}

func (r *failingRecorder) WriteSession(context.Context, store.Session) error {
	r.calls++
	return errors.New("disk full")
}

func (r *failingRecorder) WriteRun(context.Context, store.Run) error {
	r.calls++
	return errors.New("disk full")
}

func requireResultInRange(t *testing.T, res Result) {
	t.Helper()
	for _, v := range []float64{res.Coherence, res.RawCoherence, res.Resonance, res.Entropy, res.OrderParameter, res.PhaseVariance} {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.GreaterOrEqual(t, res.OrderParameter, 0.0)
	assert.LessOrEqual(t, res.OrderParameter, 1.0)
	assert.GreaterOrEqual(t, res.Coherence, 0.0)
	assert.LessOrEqual(t, res.Coherence, 1.0)
	assert.GreaterOrEqual(t, res.Entropy, 0.0)
	assert.Len(t, res.Phases, res.TokenCount)
}

func TestProcess_HelloWorld(t *testing.T) {
	e := newTestEngine(t)

	res := e.Process(context.Background(), "hello world", Params{Coupling: 2.0, Threshold: 0.618, Personalization: 0})

	requireResultInRange(t, res)
	assert.Equal(t, 2, res.TokenCount)
	assert.Equal(t, "sess-test", res.SessionID)
	assert.Equal(t, int64(1), res.Seq)
	assert.LessOrEqual(t, res.Iterations, 100)
	if res.Decision.Passed {
		assert.GreaterOrEqual(t, res.Decision.AdjustedCoherence, res.Decision.AdaptiveThreshold)
	}
	assert.NotEmpty(t, res.Response)
	assert.Len(t, e.History(), 1)
}

func TestProcess_EmptyPromptUsesSentinel(t *testing.T) {
	e := newTestEngine(t)

	for _, prompt := range []string{"", "   ", "?!."} {
		res := e.Process(context.Background(), prompt, DefaultParams())
		requireResultInRange(t, res)
		assert.Equal(t, 1, res.TokenCount)
	}
	assert.Equal(t, []string{"∅"}, e.State().Tokens)
}

func TestProcess_DeterministicForSeed(t *testing.T) {
	params := Params{Coupling: 1.5, Threshold: 0.5, Personalization: 0.4}
	prompts := []string{"the quick brown fox", "jumps over", "the lazy dog"}

	a := newTestEngine(t)
	b := newTestEngine(t)
	for _, p := range prompts {
		assert.Equal(t, a.Process(context.Background(), p, params), b.Process(context.Background(), p, params))
	}
}

func TestProcess_QualityFailureBlocks(t *testing.T) {
	e := newTestEngine(t)
	prompts := []string{"a", "hello world", "synchronization coherence oscillator", "x y z w v u t s r q"}

	for i := 0; i < 20; i++ {
		res := e.Process(context.Background(), prompts[i%len(prompts)], Params{Coupling: float64(i%5) + 0.1, Threshold: 0.3})
		if !res.Decision.QualityPassed {
			assert.False(t, res.Decision.Passed)
		}
		assert.Equal(t, res.Decision.QualityPassed && res.Coherence >= res.Decision.AdaptiveThreshold, res.Decision.Passed)
	}
}

func TestProcess_ClampsParams(t *testing.T) {
	e := newTestEngine(t)
	res := e.Process(context.Background(), "bounded", Params{Coupling: 99, Threshold: -1, Personalization: math.NaN()})

	requireResultInRange(t, res)
	assert.GreaterOrEqual(t, res.Decision.AdaptiveThreshold, MinThreshold)
}

func TestProcess_SeqKeepsIncreasingAcrossReset(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Process(ctx, "one", DefaultParams())
	e.Process(ctx, "two", DefaultParams())
	e.Reset()

	assert.Empty(t, e.History())
	assert.Empty(t, e.State().Phases)

	res := e.Process(ctx, "three", DefaultParams())
	assert.Equal(t, int64(3), res.Seq)
	assert.Len(t, e.History(), 1)
}

func TestState_ConsistentWithLastResult(t *testing.T) {
	e := newTestEngine(t)
	res := e.Process(context.Background(), "phase locked tokens", Params{Coupling: 3, Threshold: 0.6})

	st := e.State()
	assert.Equal(t, res.Phases, st.Phases)
	assert.InDelta(t, res.OrderParameter, st.Snapshot.OrderParameter, 1e-12)
	assert.InDelta(t, res.Entropy, st.Snapshot.Entropy, 1e-12)
	assert.InDelta(t, res.RawCoherence, st.Snapshot.Coherence, 1e-12)
	assert.Equal(t, 1, st.HistoryLen)
}

func TestAdaptiveThreshold_LowersAfterHighCoherence(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 4; i++ {
		e.adapter.Record(0.9, 0.8)
	}
	assert.LessOrEqual(t, e.AdaptiveThreshold(0.618), 0.618)

	e.Reset()
	assert.InDelta(t, 0.618, e.AdaptiveThreshold(0.618), 1e-12)
}

func TestProcess_HistoryFeedsNextGate(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 4; i++ {
		e.adapter.Record(0.95, 0.9)
	}
	res := e.Process(context.Background(), "next", Params{Coupling: 1, Threshold: 0.618})
	assert.InDelta(t, 0.618*0.9, res.Decision.AdaptiveThreshold, 1e-12)
}

func TestProcess_RecordsRuns(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, WithRecorder(s))
	ctx := context.Background()

	first := e.Process(ctx, "hello world", DefaultParams())
	e.Process(ctx, "second prompt", DefaultParams())

	runs, err := s.ReadSession(ctx, "sess-test")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, store.PromptDigest("hello world"), runs[0].PromptDigest)
	assert.Equal(t, first.Phases, runs[0].Phases)
	assert.Equal(t, first.Decision.Passed, runs[0].Passed)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, store.KindRequest, sessions[0].Kind)
}

func TestProcess_ResumedSessionContinuesSeq(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e := newTestEngine(t, WithRecorder(s))
	e.Process(ctx, "one", DefaultParams())
	e.Process(ctx, "two", DefaultParams())

	last, err := s.LastSeq(ctx, "sess-test")
	require.NoError(t, err)

	resumed := newTestEngine(t, WithRecorder(s), WithSession("sess-test", last))
	res := resumed.Process(ctx, "three", DefaultParams())
	assert.Equal(t, int64(3), res.Seq)

	n, err := s.CountRuns(ctx, "sess-test")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestProcess_RecorderFailureDoesNotFail(t *testing.T) {
	rec := &failingRecorder{}
	e := newTestEngine(t, WithRecorder(rec))

	res := e.Process(context.Background(), "still works", DefaultParams())
	requireResultInRange(t, res)
	assert.Equal(t, 1, rec.calls)
	assert.Len(t, e.History(), 1)
}

func TestProcess_CustomGate(t *testing.T) {
	g := gate.New(gate.DefaultThreshold)
	g.OrderMin = -1
	g.EntropyMax = 100
	g.VarianceMax = 100
	e := newTestEngine(t, WithGate(g))

	res := e.Process(context.Background(), "anything at all", Params{Coupling: 1, Threshold: 0.1})
	assert.True(t, res.Decision.QualityPassed)
	assert.Equal(t, res.Coherence >= res.Decision.AdaptiveThreshold, res.Decision.Passed)
	assert.InDelta(t, metrics.Clamp(res.Resonance, 0, 1), res.Resonance, 1e-12)
}

func TestParams_ClampAndValidate(t *testing.T) {
	p := Params{Coupling: 7, Threshold: 0.05, Personalization: -2}
	c := p.Clamp()
	assert.Equal(t, Params{Coupling: MaxCoupling, Threshold: MinThreshold, Personalization: 0}, c)
	assert.NoError(t, c.Validate())

	err := p.Validate()
	require.Error(t, err)
	assert.True(t, IsParamError(err))

	var pe *ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "coupling", pe.Field)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "personalization")

	assert.NoError(t, DefaultParams().Validate())
}
