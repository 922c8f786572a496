package speculative

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/keiyakucheck/internal/ai"
	"github.com/ericksa/keiyakucheck/internal/cache"
	"github.com/ericksa/keiyakucheck/internal/checkpoint"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

const contract = "甲は、検収完了後90日以内に報酬を支払う。乙は甲に生じた一切の損害を賠償する。"

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []laws.UserContext
	block   map[laws.EntityType]chan struct{}
	err     error
	summary string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ string, uc laws.UserContext) (*ai.Narrative, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uc)
	gate := f.block[uc.UserEntityType]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	summary := f.summary
	if summary == "" {
		summary = "analysis for " + string(uc.UserEntityType)
	}
	return &ai.Narrative{Summary: summary, Findings: []ai.Finding{{CheckpointID: "CP001", Status: "critical", Comment: "90日"}}}, nil
}

func (f *fakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingSink struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingSink) Save(_ context.Context, id string, _ *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return nil
}

func wait(t *testing.T, p *Pending) {
	t.Helper()
	if p == nil {
		return
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("analysis did not finish")
	}
}

func TestMatches(t *testing.T) {
	d := DefaultContext()

	same := laws.UserContext{
		UserRole:               laws.RoleVendor,
		UserEntityType:         laws.EntityIndividual,
		CounterpartyEntityType: laws.EntityCorporationWithEmployee,
		CounterpartyCapital:    laws.CapitalOver300M,
		IsInvoiceRegistered:    laws.Yes,
	}
	assert.True(t, Matches(d, same))
	assert.True(t, Matches(d, laws.UserContext{}))

	assert.False(t, Matches(d, laws.UserContext{UserRole: laws.RoleClient}))
	assert.False(t, Matches(d, laws.UserContext{UserEntityType: laws.EntityOnePersonCorporation}))
}

func TestReconcile_MatchingContextReusesSpeculation(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	assert.Equal(t, DefaultContext(), spec.UsedContext)
	res, ok := spec.RuleBased.Checkpoints.Find("CP001")
	require.True(t, ok)
	assert.Equal(t, checkpoint.Critical, res.Status)

	report, err := c.Reconcile(ctx, spec.ID, laws.UserContext{
		UserRole:               laws.RoleVendor,
		UserEntityType:         laws.EntityIndividual,
		CounterpartyEntityType: laws.EntityCorporationWithEmployee,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fa.Calls())
	assert.True(t, report.Speculative)
	assert.Equal(t, spec.ID, report.ID)
	assert.Equal(t, spec.RuleBased, report.Analysis)
	assert.Equal(t, AIOK, report.AI.Status)
	assert.Equal(t, "analysis for individual", report.AI.Narrative.Summary)
}

func TestReconcile_DifferentEntityRecomputes(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	wait(t, spec.pending)

	report, err := c.Reconcile(ctx, spec.ID, laws.UserContext{
		UserRole:       laws.RoleVendor,
		UserEntityType: laws.EntityCorporationWithEmployee,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, fa.Calls())
	assert.False(t, report.Speculative)
	assert.Equal(t, laws.EntityCorporationWithEmployee, report.Context.UserEntityType)
	assert.False(t, report.Laws.FreelanceProtectionBasic)
	assert.NotEqual(t, spec.Key, report.Key)
	require.Equal(t, AIOK, report.AI.Status)
	assert.Equal(t, "analysis for corporation_with_employees", report.AI.Narrative.Summary)

	res, ok := report.Checkpoints.Find("CP014")
	require.True(t, ok)
	assert.Equal(t, checkpoint.Clear, res.Status, "harassment duty no longer applies")
}

func TestReconcile_LateSpeculativeResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeAnalyzer{block: map[laws.EntityType]chan struct{}{laws.EntityIndividual: release}}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	report, err := c.Reconcile(ctx, spec.ID, laws.UserContext{UserEntityType: laws.EntityOnePersonCorporation})
	require.NoError(t, err)
	assert.Equal(t, "analysis for one_person_corporation", report.AI.Narrative.Summary)

	close(release)
	wait(t, spec.pending)

	assert.Equal(t, "analysis for one_person_corporation", report.AI.Narrative.Summary)
	_, err = c.Reconcile(ctx, spec.ID, DefaultContext())
	assert.ErrorIs(t, err, ErrAlreadyReconciled)
}

func TestBegin_ConcurrentSameTextSharesOneCall(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeAnalyzer{block: map[laws.EntityType]chan struct{}{laws.EntityIndividual: release}}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	specs := make([]*Speculation, 8)
	var wg sync.WaitGroup
	for i := range specs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Layout differences normalize to the same key.
			text := contract
			if i%2 == 1 {
				text = "\r\n" + contract + "  \n"
			}
			specs[i] = c.Begin(ctx, text)
		}(i)
	}
	wg.Wait()

	for _, s := range specs[1:] {
		assert.Same(t, specs[0].pending, s.pending)
		assert.Equal(t, specs[0].Key, s.Key)
	}
	close(release)
	wait(t, specs[0].pending)
	assert.Equal(t, 1, fa.Calls())
}

func TestReconcile_Errors(t *testing.T) {
	c := NewCoordinator()
	ctx := context.Background()

	_, err := c.Reconcile(ctx, "nope", DefaultContext())
	assert.ErrorIs(t, err, ErrUnknownSpeculation)

	spec := c.Begin(ctx, contract)
	_, err = c.Reconcile(ctx, spec.ID, DefaultContext())
	require.NoError(t, err)
	_, err = c.Reconcile(ctx, spec.ID, DefaultContext())
	assert.ErrorIs(t, err, ErrAlreadyReconciled)
}

func TestReconcile_AIFailureKeepsDeterministicFindings(t *testing.T) {
	fa := &fakeAnalyzer{err: errors.New("connection refused")}
	cc := cache.New(cache.NewMemoryStore(), 10)
	c := NewCoordinator(WithAnalyzer(fa), WithCache(cc))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	report, err := c.Reconcile(ctx, spec.ID, DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, AIFailed, report.AI.Status)
	assert.Contains(t, report.AI.Error, "connection refused")
	assert.Nil(t, report.AI.Narrative)
	assert.Len(t, report.Checkpoints.Results, 28)
	assert.Positive(t, report.Checkpoints.Summary.Critical)

	n, err := cc.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed analyses are not cached")
}

func TestReconcile_ScaffoldingIsAGenerationFailure(t *testing.T) {
	fa := &fakeAnalyzer{summary: "[ここに契約の評価を記載してください]"}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	report, err := c.Reconcile(ctx, spec.ID, DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, AIFailed, report.AI.Status)
	assert.Contains(t, report.AI.Error, ai.ErrInvalidGeneration.Error())
	assert.Nil(t, report.AI.Narrative)
}

func TestReconcile_WithoutAnalyzer(t *testing.T) {
	c := NewCoordinator()
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	assert.Nil(t, spec.pending)

	report, err := c.Reconcile(ctx, spec.ID, DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, AIAbsent, report.AI.Status)
}

func TestCrossCheckOverridesAreAttached(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := NewCoordinator(WithAnalyzer(fa))
	ctx := context.Background()

	spec := c.Begin(ctx, contract)
	report, err := c.Reconcile(ctx, spec.ID, DefaultContext())
	require.NoError(t, err)

	// The fake only reports CP001; every other engine critical is an override.
	for _, o := range report.AI.Overrides {
		assert.NotEqual(t, "CP001", o.CheckpointID)
		assert.Equal(t, checkpoint.Critical, o.EngineStatus)
	}
	assert.Len(t, report.AI.Overrides, report.Checkpoints.Summary.Critical-1)
}

func TestCache_SecondSessionSkipsAI(t *testing.T) {
	fa := &fakeAnalyzer{}
	cc := cache.New(cache.NewMemoryStore(), 10)
	sink := &recordingSink{}
	c := NewCoordinator(WithAnalyzer(fa), WithCache(cc), WithSink(sink))
	ctx := context.Background()

	first := c.Begin(ctx, contract)
	r1, err := c.Reconcile(ctx, first.ID, DefaultContext())
	require.NoError(t, err)

	second := c.Begin(ctx, contract+"\n\n")
	assert.True(t, second.Cached)
	r2, err := c.Reconcile(ctx, second.ID, DefaultContext())
	require.NoError(t, err)

	assert.Equal(t, 1, fa.Calls())
	assert.Equal(t, second.ID, r2.ID)
	assert.Equal(t, r1.AI.Narrative, r2.AI.Narrative)
	assert.Equal(t, []string{first.ID, second.ID}, sink.ids)
}

func TestAnalyze_UsesCacheForKnownContext(t *testing.T) {
	fa := &fakeAnalyzer{}
	sink := &recordingSink{}
	c := NewCoordinator(WithAnalyzer(fa), WithCache(cache.New(cache.NewMemoryStore(), 10)), WithSink(sink))
	ctx := context.Background()
	uc := laws.UserContext{UserRole: laws.RoleClient}

	a := c.Analyze(ctx, contract, uc)
	b := c.Analyze(ctx, contract, uc)

	assert.Equal(t, 1, fa.Calls())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Checkpoints, b.Checkpoints)
	assert.Equal(t, []string{a.ID, b.ID}, sink.ids)
}

func TestBegin_PrunesExpiredSpeculations(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewCoordinator(WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	old := c.Begin(ctx, contract)
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	c.Begin(ctx, "別の契約書")

	_, ok := c.Get(old.ID)
	assert.False(t, ok)
	_, err := c.Reconcile(ctx, old.ID, DefaultContext())
	assert.ErrorIs(t, err, ErrUnknownSpeculation)
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := NewCoordinator(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	c.Begin(ctx, contract)
	c.Begin(ctx, "別の契約書")
	assert.Zero(t, c.Prune())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, c.Prune())
	assert.Zero(t, c.Prune())
}
