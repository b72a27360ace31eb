package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type step struct {
	data string
	err  error
}

// gatedLoader returns a loader whose i-th invocation blocks until the
// i-th gate receives its step, letting tests control resolution order.
// Each invocation signals started before blocking; tests that overlap
// loads drain it between refetches to pin which goroutine got which
// sequence number.
func gatedLoader(gates []chan step) (Loader[string], chan struct{}) {
	var n atomic.Int32
	started := make(chan struct{}, len(gates))
	return func(ctx context.Context) (string, error) {
		i := int(n.Add(1)) - 1
		started <- struct{}{}
		s := <-gates[i]
		return s.data, s.err
	}, started
}

func makeGates(n int) []chan step {
	gates := make([]chan step, n)
	for i := range gates {
		gates[i] = make(chan step, 1)
	}
	return gates
}

func TestFetchSuccess(t *testing.T) {
	r := New(func(ctx context.Context) (string, error) { return "hello", nil })
	snap := r.Fetch(context.Background())
	if snap.Loading {
		t.Fatal("loading after settle")
	}
	if snap.Err != "" {
		t.Fatalf("err = %q", snap.Err)
	}
	if snap.Data != "hello" {
		t.Fatalf("data = %q", snap.Data)
	}
}

func TestDataRetainedAcrossFailure(t *testing.T) {
	gates := makeGates(2)
	load, _ := gatedLoader(gates)
	r := New(load)

	gates[0] <- step{data: "good"}
	r.Fetch(context.Background())

	gates[1] <- step{err: errors.New("server went away")}
	snap := r.Fetch(context.Background())
	if snap.Err != "server went away" {
		t.Fatalf("err = %q", snap.Err)
	}
	if snap.Data != "good" {
		t.Fatalf("stale data dropped: %q", snap.Data)
	}
}

func TestLoadingTrueWhileInFlight(t *testing.T) {
	gates := makeGates(1)
	load, _ := gatedLoader(gates)
	r := New(load)

	r.Refetch(context.Background())
	if !r.Snapshot().Loading {
		t.Fatal("loading should be true while the request is in flight")
	}
	gates[0] <- step{data: "done"}
	r.Wait()
	if r.Snapshot().Loading {
		t.Fatal("loading should be false after settle")
	}
}

func TestErrorClearedAtStartOfAttempt(t *testing.T) {
	gates := makeGates(2)
	load, _ := gatedLoader(gates)
	r := New(load)

	gates[0] <- step{err: errors.New("boom")}
	r.Fetch(context.Background())
	if r.Snapshot().Err == "" {
		t.Fatal("expected error")
	}

	r.Refetch(context.Background())
	if got := r.Snapshot().Err; got != "" {
		t.Fatalf("err not cleared at start of attempt: %q", got)
	}
	gates[1] <- step{data: "recovered"}
	r.Wait()
}

// Two loads overlap and the earlier-issued one resolves last: its
// response must be discarded so the resource never regresses.
func TestStaleResponseDiscarded(t *testing.T) {
	gates := makeGates(2)
	load, started := gatedLoader(gates)
	r := New(load)

	r.Refetch(context.Background()) // seq 1
	<-started                       // seq 1's goroutine holds gate 0
	r.Refetch(context.Background()) // seq 2
	<-started

	gates[1] <- step{data: "newer"} // seq 2 resolves first
	gates[0] <- step{data: "older"} // seq 1 resolves last
	r.Wait()

	if got := r.Snapshot().Data; got != "newer" {
		t.Fatalf("data = %q, stale response won", got)
	}
}

func TestInOrderResponsesApplyNormally(t *testing.T) {
	gates := makeGates(2)
	load, started := gatedLoader(gates)
	r := New(load)

	r.Refetch(context.Background()) // seq 1
	<-started
	r.Refetch(context.Background()) // seq 2
	<-started

	gates[0] <- step{data: "older"}
	gates[1] <- step{data: "newer"}
	r.Wait()

	if got := r.Snapshot().Data; got != "newer" {
		t.Fatalf("data = %q", got)
	}
}

func TestSetOverwritesData(t *testing.T) {
	r := New(func(ctx context.Context) ([]int, error) { return []int{1, 2}, nil })
	r.Fetch(context.Background())
	r.Set([]int{3})
	if got := r.Snapshot().Data; len(got) != 1 || got[0] != 3 {
		t.Fatalf("data = %v", got)
	}
}
