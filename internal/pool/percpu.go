package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// PerCPU stripes a generic object pool across GOMAXPROCS sub-pools to
// reduce sync.Pool contention under the high connection counts the shared
// internal loop and worker-pool daemon modes produce. It is a generic
// vehicle, not specific to *Pool, so the daemon can use the same striping
// for other per-connection objects it recycles.
type PerCPU[T any] struct {
	pools      []*sync.Pool
	numCPU     int
	roundRobin atomic.Uint64
	newFunc    func() T
}

// NewPerCPU creates a striped pool. newFunc supplies a fresh value on a
// miss, mirroring sync.Pool.New.
func NewPerCPU[T any](newFunc func() T) *PerCPU[T] {
	numCPU := runtime.GOMAXPROCS(0)
	if numCPU < 1 {
		numCPU = 1
	}
	pools := make([]*sync.Pool, numCPU)
	for i := range pools {
		pools[i] = &sync.Pool{New: func() any { return newFunc() }}
	}
	return &PerCPU[T]{pools: pools, numCPU: numCPU, newFunc: newFunc}
}

// Get retrieves a value, round-robining across sub-pools.
func (p *PerCPU[T]) Get() T {
	idx := p.roundRobin.Add(1) % uint64(p.numCPU)
	if obj := p.pools[idx].Get(); obj != nil {
		return obj.(T)
	}
	return p.newFunc()
}

// Put returns a value to the sub-pool it was most likely drawn from.
func (p *PerCPU[T]) Put(obj T) {
	idx := p.roundRobin.Load() % uint64(p.numCPU)
	p.pools[idx].Put(obj)
}

// Warmup pre-populates every sub-pool with countPerCPU values.
func (p *PerCPU[T]) Warmup(countPerCPU int) {
	for _, sp := range p.pools {
		for i := 0; i < countPerCPU; i++ {
			sp.Put(p.newFunc())
		}
	}
}
