package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of concurrently running workers. It is the only
// state shared between runs; everything else (bindings, buffers, scratch
// directories) is per-worker.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// NewGate creates an admission gate for at most capacity concurrent workers.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a worker slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("admission gate: %w", err)
	}
	g.inFlight.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight reports the number of currently admitted workers.
func (g *Gate) InFlight() int64 { return g.inFlight.Load() }

// Capacity reports the concurrency ceiling.
func (g *Gate) Capacity() int64 { return g.capacity }

// Saturated reports whether the gate cannot admit new work right now.
func (g *Gate) Saturated() bool { return g.inFlight.Load() >= g.capacity }
