// Package speculative hides AI latency by starting the analysis the moment
// contract text is available, under an assumed context, and reconciling the
// result once the user's real context is known.
//
// The assumed context is laws.DefaultContext. When the real context agrees
// with it on role and entity type the speculative result is promoted as is;
// otherwise it is dropped and the analysis is redone under the real context.
// A speculation is reconciled at most once: the first valid reconciliation
// wins and any later attempt gets ErrAlreadyReconciled.
package speculative

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericksa/keiyakucheck/internal/ai"
	"github.com/ericksa/keiyakucheck/internal/cache"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

var (
	ErrUnknownSpeculation = errors.New("unknown or expired speculation")
	ErrAlreadyReconciled  = errors.New("speculation already reconciled")
)

// DefaultTTL bounds how long an unreconciled speculation is kept.
const DefaultTTL = 30 * time.Minute

// DefaultContext is the context speculation runs under.
func DefaultContext() laws.UserContext {
	return laws.DefaultContext()
}

// Matches reports whether a result computed under a can stand for b. Only the
// user's role and entity type discriminate; they decide which protection
// regimes apply.
func Matches(a, b laws.UserContext) bool {
	a, b = a.Normalize(), b.Normalize()
	return a.UserRole == b.UserRole && a.UserEntityType == b.UserEntityType
}

// ResultSink receives every final report. Implementations live outside this
// module.
type ResultSink interface {
	Save(ctx context.Context, id string, r *Report) error
}

// Speculation is a result computed under the default context, waiting for
// the real one.
type Speculation struct {
	ID          string           `json:"id" yaml:"id"`
	Key         string           `json:"key" yaml:"key"`
	UsedContext laws.UserContext `json:"used_context" yaml:"used_context"`
	RuleBased   Analysis         `json:"rule_based" yaml:"rule_based"`
	Cached      bool             `json:"cached" yaml:"cached"`
	Timestamp   time.Time        `json:"timestamp" yaml:"timestamp"`

	text       string
	pending    *Pending
	cached     *Report
	reconciled bool
}

// Coordinator owns the speculations of one process.
type Coordinator struct {
	analyzer ai.Analyzer
	cache    *cache.Cache
	sink     ResultSink
	registry *Registry
	timeout  time.Duration
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	specs map[string]*Speculation
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAnalyzer sets the AI collaborator. Without one every report carries
// AIAbsent.
func WithAnalyzer(a ai.Analyzer) Option {
	return func(c *Coordinator) { c.analyzer = a }
}

// WithCache enables content-addressed reuse of final reports.
func WithCache(cc *cache.Cache) Option {
	return func(c *Coordinator) { c.cache = cc }
}

// WithSink hands every final report to s.
func WithSink(s ResultSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// WithTimeout bounds each AI call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithTTL sets how long an unreconciled speculation is kept.
func WithTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.ttl = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: NewRegistry(),
		ttl:      DefaultTTL,
		now:      time.Now,
		specs:    make(map[string]*Speculation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin runs the deterministic analysis under the default context right away
// and dispatches the AI call for it, attaching to an identical call that is
// already running. It never blocks on the AI call.
func (c *Coordinator) Begin(ctx context.Context, text string) *Speculation {
	used := DefaultContext()
	key := cache.KeyFor(text, used)

	spec := &Speculation{
		ID:          uuid.NewString(),
		Key:         key,
		UsedContext: used,
		Timestamp:   c.now(),
		text:        text,
	}

	var hit Report
	if c.cache != nil && c.cache.Get(ctx, key, &hit) {
		spec.cached = &hit
		spec.Cached = true
		spec.RuleBased = hit.Analysis
	} else {
		spec.RuleBased = Analyze(text, used)
		spec.pending = c.dispatch(ctx, key, text, used)
	}

	c.mu.Lock()
	c.pruneLocked()
	c.specs[spec.ID] = spec
	c.mu.Unlock()
	return spec
}

// Reconcile turns the speculation id into a final report under the actual
// context. It waits for the AI call when needed; a failed call yields a
// report whose AI part is AIFailed.
func (c *Coordinator) Reconcile(ctx context.Context, id string, actual laws.UserContext) (*Report, error) {
	c.mu.Lock()
	spec, ok := c.specs[id]
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownSpeculation
	}
	if spec.reconciled {
		c.mu.Unlock()
		return nil, ErrAlreadyReconciled
	}
	spec.reconciled = true
	c.mu.Unlock()

	actual = actual.Normalize()

	var report *Report
	if Matches(spec.UsedContext, actual) {
		report = c.promote(ctx, spec)
	} else {
		log.Printf("speculation %s superseded: context %s/%s differs from %s/%s", spec.ID,
			actual.UserRole, actual.UserEntityType, spec.UsedContext.UserRole, spec.UsedContext.UserEntityType)
		report = c.recompute(ctx, spec.text, actual)
	}
	report.ID = spec.ID
	c.finish(ctx, report)
	return report, nil
}

// Analyze produces a final report for a known context without speculation.
// It shares the cache and the in-flight registry with Begin.
func (c *Coordinator) Analyze(ctx context.Context, text string, uc laws.UserContext) *Report {
	report := c.recompute(ctx, text, uc.Normalize())
	report.ID = uuid.NewString()
	c.finish(ctx, report)
	return report
}

// finish hands a final report to the sink. A failed save is logged; the
// caller still gets the report.
func (c *Coordinator) finish(ctx context.Context, r *Report) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Save(ctx, r.ID, r); err != nil {
		log.Printf("report %s: saving report: %v", r.ID, err)
	}
}

// Get returns the speculation with the given id.
func (c *Coordinator) Get(id string) (*Speculation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.specs[id]
	return s, ok
}

func (c *Coordinator) promote(ctx context.Context, spec *Speculation) *Report {
	if spec.cached != nil {
		r := *spec.cached
		r.Speculative = true
		return &r
	}
	report := &Report{
		Key:         spec.Key,
		Context:     spec.UsedContext,
		Analysis:    spec.RuleBased,
		AI:          c.await(ctx, spec.pending, spec.RuleBased),
		Speculative: true,
		CreatedAt:   c.now(),
	}
	c.store(ctx, report)
	return report
}

func (c *Coordinator) recompute(ctx context.Context, text string, uc laws.UserContext) *Report {
	key := cache.KeyFor(text, uc)

	var hit Report
	if c.cache != nil && c.cache.Get(ctx, key, &hit) {
		hit.Speculative = false
		return &hit
	}

	analysis := Analyze(text, uc)
	report := &Report{
		Key:       key,
		Context:   uc,
		Analysis:  analysis,
		AI:        c.await(ctx, c.dispatch(ctx, key, text, uc), analysis),
		CreatedAt: c.now(),
	}
	c.store(ctx, report)
	return report
}

// dispatch starts the AI call for key or attaches to the one in flight. It
// returns nil when no analyzer is configured.
func (c *Coordinator) dispatch(ctx context.Context, key, text string, uc laws.UserContext) *Pending {
	if c.analyzer == nil {
		return nil
	}
	// The call outlives the request that started it.
	base := context.WithoutCancel(ctx)
	p, started := c.registry.Do(key, func() (*ai.Narrative, error) {
		callCtx := base
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(base, c.timeout)
			defer cancel()
		}
		n, err := c.analyzer.Analyze(callCtx, text, uc)
		if err != nil {
			return nil, err
		}
		if err := ai.Validate(n); err != nil {
			return nil, err
		}
		return n, nil
	})
	if !started {
		log.Printf("analysis %.12s already in flight, attaching", key)
	}
	return p
}

func (c *Coordinator) await(ctx context.Context, p *Pending, a Analysis) AIOutcome {
	if p == nil {
		return AIOutcome{Status: AIAbsent}
	}
	n, err := p.Wait(ctx)
	if err != nil {
		log.Printf("analysis failed: %v", err)
	}
	return outcome(n, err, a)
}

// store caches a report unless its AI part failed; a failed call is retried
// on the next request instead of becoming the canonical answer.
func (c *Coordinator) store(ctx context.Context, r *Report) {
	if c.cache == nil || r.AI.Status == AIFailed {
		return
	}
	if err := c.cache.Put(ctx, r.Key, r); err != nil {
		log.Printf("cache write %.12s: %v", r.Key, err)
	}
}

// Prune drops speculations older than the TTL and reports how many went. An
// abandoned speculation's AI call is not stopped; its result is simply never
// read.
func (c *Coordinator) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked()
}

func (c *Coordinator) pruneLocked() int {
	cutoff := c.now().Add(-c.ttl)
	n := 0
	for id, s := range c.specs {
		if s.Timestamp.Before(cutoff) {
			delete(c.specs, id)
			n++
		}
	}
	return n
}
