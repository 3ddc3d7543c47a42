package metrics

import (
	"context"
	"sync"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// FetchFunc loads one dataset for a filter set.
type FetchFunc[T any] func(ctx context.Context, filters dashboard.Filters) (T, error)

// Snapshot is the adapter state consumers observe: the last successful data,
// whether a fetch is in flight, and the last error.
type Snapshot[T any] struct {
	Data    T
	Loading bool
	Err     error
}

// Adapter wraps a fetch function with filter-change detection and stale
// response handling. Every fetch is tagged with a sequence number; responses
// arriving after a newer fetch started are dropped, so the snapshot always
// reflects the most recently requested filters.
type Adapter[T any] struct {
	mu       sync.Mutex
	fetch    FetchFunc[T]
	onChange func(Snapshot[T])

	filters dashboard.Filters
	started bool
	seq     uint64

	data    T
	err     error
	loading bool
}

// NewAdapter builds an adapter around a fetch function. onChange, when set,
// fires on every state transition (loading, data, error).
func NewAdapter[T any](fetch FetchFunc[T], onChange func(Snapshot[T])) *Adapter[T] {
	return &Adapter[T]{fetch: fetch, onChange: onChange}
}

// SetFilters updates the filter set and re-fetches when it actually changed.
// Comparison is by value: a rebuilt-but-identical filter set is a no-op. The
// first call always fetches.
func (a *Adapter[T]) SetFilters(ctx context.Context, filters dashboard.Filters) {
	a.mu.Lock()
	if a.started && a.filters.Equal(filters) {
		a.mu.Unlock()
		return
	}
	a.filters = filters
	a.started = true
	a.fetchLocked(ctx)
}

// Refetch re-runs the fetch with the current filters, for manual refresh.
func (a *Adapter[T]) Refetch(ctx context.Context) {
	a.mu.Lock()
	a.started = true
	a.fetchLocked(ctx)
}

// Snapshot returns the current adapter state.
func (a *Adapter[T]) Snapshot() Snapshot[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot[T]{Data: a.data, Loading: a.loading, Err: a.err}
}

// fetchLocked starts an async fetch. The caller must hold the lock; it is
// released before returning.
func (a *Adapter[T]) fetchLocked(ctx context.Context) {
	a.seq++
	seq := a.seq
	filters := a.filters
	a.loading = true
	a.err = nil
	snapshot := Snapshot[T]{Data: a.data, Loading: true}
	a.mu.Unlock()

	a.emit(snapshot)

	go func() {
		data, err := a.fetch(ctx, filters)

		a.mu.Lock()
		if seq != a.seq {
			// A newer fetch superseded this one; drop the result.
			a.mu.Unlock()
			return
		}
		a.loading = false
		if err != nil {
			a.err = err
		} else {
			a.data = data
		}
		snapshot := Snapshot[T]{Data: a.data, Loading: false, Err: a.err}
		a.mu.Unlock()

		a.emit(snapshot)
	}()
}

func (a *Adapter[T]) emit(s Snapshot[T]) {
	if a.onChange != nil {
		a.onChange(s)
	}
}
