package speculative

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericksa/keiyakucheck/internal/ai"
)

// Pending is a single-shot handle on one AI call. It completes exactly once.
type Pending struct {
	done      chan struct{}
	narrative *ai.Narrative
	err       error
}

// Done is closed when the call has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call finishes or ctx ends. Giving up on ctx does not
// stop the call; it only stops this waiter.
func (p *Pending) Wait(ctx context.Context) (*ai.Narrative, error) {
	select {
	case <-p.done:
		return p.narrative, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Registry maps a cache key to the AI call currently running for it, so that
// identical requests share one call.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]*Pending
}

func NewRegistry() *Registry {
	return &Registry{inflight: make(map[string]*Pending)}
}

// Do returns the call in flight for key, or starts fn in a new goroutine when
// there is none. started reports whether fn was launched by this call. The
// key is released once fn returns.
func (r *Registry) Do(key string, fn func() (*ai.Narrative, error)) (p *Pending, started bool) {
	r.mu.Lock()
	if p, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		return p, false
	}
	p = &Pending{done: make(chan struct{})}
	r.inflight[key] = p
	r.mu.Unlock()

	go func() {
		p.narrative, p.err = call(fn)
		r.mu.Lock()
		if r.inflight[key] == p {
			delete(r.inflight, key)
		}
		r.mu.Unlock()
		close(p.done)
	}()
	return p, true
}

func call(fn func() (*ai.Narrative, error)) (n *ai.Narrative, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("analysis panicked: %v", rec)
		}
	}()
	return fn()
}

// InFlight reports how many calls are running.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}
