package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TobiSchelling/g2bdash/internal/procurement"
)

// gatedFetcher answers each call only once its gate for the search text
// is released, ignoring cancellation to simulate a response already on
// the wire.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []string
}

func newGatedFetcher(keys ...string) *gatedFetcher {
	g := &gatedFetcher{gates: make(map[string]chan struct{})}
	for _, k := range keys {
		g.gates[k] = make(chan struct{})
	}
	return g
}

func (g *gatedFetcher) release(key string) {
	close(g.gates[key])
}

func (g *gatedFetcher) FetchPage(ctx context.Context, kind procurement.Kind, f procurement.Filters, p procurement.Page) (*procurement.ListResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, f.SearchText)
	gate := g.gates[f.SearchText]
	g.mu.Unlock()

	<-gate
	return &procurement.ListResult{
		Kind:       kind,
		Page:       p,
		Total:      1,
		BidNotices: []procurement.BidNotice{{NoticeNumber: f.SearchText, Title: f.SearchText}},
	}, nil
}

func TestLoaderLateArrivalDoesNotOverwrite(t *testing.T) {
	g := newGatedFetcher("A", "B")
	l := NewLoader(g, procurement.BidNotices, 20)

	var mu sync.Mutex
	var applied []string
	l.OnChange(func(s ListState) {
		mu.Lock()
		applied = append(applied, s.Result.BidNotices[0].Title)
		mu.Unlock()
	})

	ctx := context.Background()
	l.Submit(ctx, procurement.Filters{SearchText: "A"}, procurement.FirstPage(20))
	l.Submit(ctx, procurement.Filters{SearchText: "B"}, procurement.FirstPage(20))

	g.release("B")
	waitFor(t, func() bool { return l.Snapshot().Status() == Ready })

	g.release("A")
	l.Wait()

	s := l.Snapshot()
	if got := s.Result.BidNotices[0].Title; got != "B" {
		t.Errorf("expected B after late A, got %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "B" {
		t.Errorf("expected only B applied, got %v", applied)
	}
}

// slowFetcher honors cancellation.
type slowFetcher struct {
	delay map[string]time.Duration
}

func (s *slowFetcher) FetchPage(ctx context.Context, kind procurement.Kind, f procurement.Filters, p procurement.Page) (*procurement.ListResult, error) {
	select {
	case <-time.After(s.delay[f.SearchText]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &procurement.ListResult{
		Kind:       kind,
		Page:       p,
		Total:      1,
		BidNotices: []procurement.BidNotice{{NoticeNumber: f.SearchText, Title: f.SearchText}},
	}, nil
}

func TestLoaderCancelsSupersededRequest(t *testing.T) {
	f := &slowFetcher{delay: map[string]time.Duration{"A": 500 * time.Millisecond, "B": 10 * time.Millisecond}}
	l := NewLoader(f, procurement.BidNotices, 20)

	start := time.Now()
	l.Submit(context.Background(), procurement.Filters{SearchText: "A"}, procurement.FirstPage(20))
	s := l.Load(context.Background(), procurement.Filters{SearchText: "B"}, procurement.FirstPage(20))

	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("expected superseded request to be canceled, waited %v", elapsed)
	}
	if s.Status() != Ready || s.Result.BidNotices[0].Title != "B" {
		t.Errorf("expected B ready, got %v %+v", s.Status(), s.Result)
	}
	if s.Err != nil {
		t.Errorf("cancellation of A must not surface as an error, got %v", s.Err)
	}
}

func TestLoaderCancelKeepsShownResult(t *testing.T) {
	f := &slowFetcher{delay: map[string]time.Duration{"A": 10 * time.Millisecond, "B": 5 * time.Second}}
	l := NewLoader(f, procurement.BidNotices, 20)
	ctx := context.Background()

	l.Load(ctx, procurement.Filters{SearchText: "A"}, procurement.FirstPage(20))
	l.Submit(ctx, procurement.Filters{SearchText: "B"}, procurement.FirstPage(20))
	l.Cancel()
	l.Wait()

	s := l.Snapshot()
	if s.Status() != Ready || s.Err != nil {
		t.Fatalf("expected ready without error after cancel, got %v %v", s.Status(), s.Err)
	}
	if s.Result.BidNotices[0].Title != "A" || s.Filters.SearchText != "A" {
		t.Errorf("expected A still shown, got %q with search %q", s.Result.BidNotices[0].Title, s.Filters.SearchText)
	}
}

type failingFetcher struct{}

func (failingFetcher) FetchPage(context.Context, procurement.Kind, procurement.Filters, procurement.Page) (*procurement.ListResult, error) {
	return nil, &procurement.FetchError{Op: "list", URL: "http://x", Err: errors.New("connection refused")}
}

func TestLoaderFailureFallsBack(t *testing.T) {
	l := NewLoader(failingFetcher{}, procurement.Awards, 20)
	s := l.Load(context.Background(), procurement.Filters{}, procurement.FirstPage(20))

	if s.Status() != Failed {
		t.Errorf("expected failed, got %v", s.Status())
	}
	var fe *procurement.FetchError
	if !errors.As(s.Err, &fe) {
		t.Errorf("expected FetchError, got %v", s.Err)
	}
	if s.Total() != 0 {
		t.Errorf("expected zero total, got %d", s.Total())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
