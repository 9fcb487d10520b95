package view

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// Fetcher reads one page of a listing.
type Fetcher interface {
	FetchPage(ctx context.Context, kind procurement.Kind, f procurement.Filters, p procurement.Page) (*procurement.ListResult, error)
}

// Loader drives one list slice. Submitting a new request cancels the
// in-flight one, and the reducer drops any response that still arrives
// for it.
type Loader struct {
	fetcher  Fetcher
	onChange func(ListState)

	mu     sync.Mutex
	state  ListState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoader creates a loader for kind.
func NewLoader(f Fetcher, kind procurement.Kind, pageSize int) *Loader {
	return &Loader{fetcher: f, state: NewListState(kind, pageSize)}
}

// OnChange registers a callback invoked with each applied state change.
// It runs on the goroutine that completed the request.
func (l *Loader) OnChange(fn func(ListState)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Submit starts a fetch for filters/page and returns its sequence number.
func (l *Loader) Submit(ctx context.Context, f procurement.Filters, p procurement.Page) uint64 {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state = l.state.Request(f, p)
	seq := l.state.Seq
	kind := l.state.Kind
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		r, err := l.fetcher.FetchPage(reqCtx, kind, f, p)
		l.commit(seq, r, err)
	}()
	return seq
}

// Load submits a request and waits until every outstanding request for
// this slice has finished.
func (l *Loader) Load(ctx context.Context, f procurement.Filters, p procurement.Page) ListState {
	l.Submit(ctx, f, p)
	l.Wait()
	return l.Snapshot()
}

// Wait blocks until all submitted requests have completed.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Snapshot returns the current state.
func (l *Loader) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Cancel aborts the in-flight request, if any.
func (l *Loader) Cancel() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
}

func (l *Loader) commit(seq uint64, r *procurement.ListResult, err error) {
	l.mu.Lock()
	if seq != l.state.Seq {
		l.mu.Unlock()
		return
	}
	switch {
	case errors.Is(err, context.Canceled):
		l.state = l.state.Abandon(seq)
	case err != nil:
		log.Printf("Failed to load %s page %d: %v", l.state.Kind, l.state.Page.Number, err)
		l.state = l.state.Reject(seq, err)
	default:
		l.state = l.state.Resolve(seq, r)
	}
	st := l.state
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// Fetch performs one synchronous request and returns the resulting state,
// for callers that render a single page per request.
func Fetch(ctx context.Context, f Fetcher, kind procurement.Kind, filters procurement.Filters, p procurement.Page) ListState {
	s := NewListState(kind, p.Size).Request(filters, p)
	r, err := f.FetchPage(ctx, kind, filters, p)
	if err != nil {
		log.Printf("Failed to load %s page %d: %v", kind, p.Number, err)
		return s.Reject(s.Seq, err)
	}
	return s.Resolve(s.Seq, r)
}
