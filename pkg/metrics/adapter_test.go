package metrics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never satisfied")
}

func TestAdapterFirstCallAlwaysFetches(t *testing.T) {
	var calls int32
	adapter := NewAdapter(func(context.Context, dashboard.Filters) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}, nil)

	adapter.SetFilters(context.Background(), dashboard.Filters{})
	waitFor(t, func() bool { return !adapter.Snapshot().Loading })

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 fetch, got %d", got)
	}
	if snap := adapter.Snapshot(); snap.Data != 7 || snap.Err != nil {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
}

func TestAdapterEqualFiltersNoRefetch(t *testing.T) {
	var calls int32
	adapter := NewAdapter(func(context.Context, dashboard.Filters) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	}, nil)

	store := 4
	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-01", StoreID: &store})
	waitFor(t, func() bool { return !adapter.Snapshot().Loading })

	// Same values, freshly allocated pointer. Must not fetch again.
	store2 := 4
	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-01", StoreID: &store2})

	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 fetch, got %d", got)
	}
}

func TestAdapterChangedFiltersRefetch(t *testing.T) {
	var calls int32
	adapter := NewAdapter(func(context.Context, dashboard.Filters) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, nil
	}, nil)

	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-01"})
	waitFor(t, func() bool { return !adapter.Snapshot().Loading })
	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-02"})
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 2 })
}

func TestAdapterDropsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	adapter := NewAdapter(func(_ context.Context, filters dashboard.Filters) (string, error) {
		if filters.StartDate == "2025-08-01" {
			<-release // first fetch stalls until the second completes
			return "stale", nil
		}
		return "fresh", nil
	}, nil)

	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-01"})
	adapter.SetFilters(context.Background(), dashboard.Filters{StartDate: "2025-08-02"})
	waitFor(t, func() bool { return adapter.Snapshot().Data == "fresh" })

	close(release)
	time.Sleep(20 * time.Millisecond)
	if snap := adapter.Snapshot(); snap.Data != "fresh" {
		t.Fatalf("stale response overwrote fresh data: %#v", snap)
	}
}

func TestAdapterKeepsDataOnError(t *testing.T) {
	var fail atomic.Bool
	wantErr := errors.New("backend down")
	adapter := NewAdapter(func(context.Context, dashboard.Filters) (int, error) {
		if fail.Load() {
			return 0, wantErr
		}
		return 42, nil
	}, nil)

	adapter.SetFilters(context.Background(), dashboard.Filters{})
	waitFor(t, func() bool { return adapter.Snapshot().Data == 42 })

	fail.Store(true)
	adapter.Refetch(context.Background())
	waitFor(t, func() bool { return adapter.Snapshot().Err != nil })

	snap := adapter.Snapshot()
	if !errors.Is(snap.Err, wantErr) {
		t.Fatalf("expected fetch error, got %v", snap.Err)
	}
	if snap.Data != 42 {
		t.Fatalf("last good data must survive a failed refresh, got %v", snap.Data)
	}
}

func TestAdapterEmitsTransitions(t *testing.T) {
	var mu sync.Mutex
	var states []Snapshot[int]
	adapter := NewAdapter(func(context.Context, dashboard.Filters) (int, error) {
		return 9, nil
	}, func(s Snapshot[int]) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	adapter.SetFilters(context.Background(), dashboard.Filters{})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2
	})

	mu.Lock()
	defer mu.Unlock()
	if !states[0].Loading {
		t.Fatalf("first transition must be loading, got %#v", states[0])
	}
	last := states[len(states)-1]
	if last.Loading || last.Data != 9 {
		t.Fatalf("final transition wrong: %#v", last)
	}
}
