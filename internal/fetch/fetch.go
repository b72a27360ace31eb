// Package fetch provides the generic read-request lifecycle primitive
// shared by every screen: one resource, one loader, an observable
// {data, loading, error} triple and a refetch operation.
package fetch

import (
	"context"
	"sync"
)

// Loader issues one read and returns its payload.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot is a point-in-time copy of a resource's observable state.
// Data is retained across failures so stale content can keep rendering.
type Snapshot[T any] struct {
	Data    T
	Loading bool
	Err     string
}

// Resource tracks the lifecycle of a single read. Refetching while a
// load is outstanding does not cancel it; instead every issued load
// carries a sequence number and a response is discarded when a
// later-issued load has already been applied, so the resource never
// regresses to a superseded payload.
type Resource[T any] struct {
	load Loader[T]

	mu       sync.Mutex
	cond     *sync.Cond
	data     T
	err      string
	inFlight int
	issued   uint64
	applied  uint64
}

// New creates a resource around the loader. Nothing is fetched until
// the first Refetch.
func New[T any](load Loader[T]) *Resource[T] {
	r := &Resource[T]{load: load}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Refetch issues the read asynchronously. The error is cleared at the
// start of the attempt; loading reports true until no load is in flight.
func (r *Resource[T]) Refetch(ctx context.Context) {
	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.inFlight++
	r.err = ""
	r.mu.Unlock()

	go func() {
		data, err := r.load(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.inFlight--
		if seq > r.applied {
			r.applied = seq
			if err != nil {
				r.err = err.Error()
			} else {
				r.data = data
				r.err = ""
			}
		}
		if r.inFlight == 0 {
			r.cond.Broadcast()
		}
	}()
}

// Wait blocks until no load is in flight.
func (r *Resource[T]) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.inFlight > 0 {
		r.cond.Wait()
	}
}

// Fetch issues the read and blocks until the resource settles. This is
// the synchronous surface the CLI uses.
func (r *Resource[T]) Fetch(ctx context.Context) Snapshot[T] {
	r.Refetch(ctx)
	r.Wait()
	return r.Snapshot()
}

// Snapshot returns a copy of the observable state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot[T]{Data: r.data, Loading: r.inFlight > 0, Err: r.err}
}

// Set overwrites the held data. Views use it to fold reconciled
// collections back into the resource they render from.
func (r *Resource[T]) Set(data T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
}
