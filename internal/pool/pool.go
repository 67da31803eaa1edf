// Package pool implements the per-request bump allocator that backs the
// parser's read buffer, the parsed header list, and the response write
// buffer for a single HTTP request/response exchange.
//
// A Pool is created when the first byte of a request is read and destroyed
// (or reset for the next pipelined request) once that request completes.
// It never moves a live allocation: Alloc and Reallocate hand back slices
// into a single backing array, and the backing array itself is replaced
// only by Reset/Destroy.
package pool

import (
	"errors"

	"github.com/valyala/bytebufferpool"
)

// ErrOutOfPool is returned by Alloc and Reallocate when servicing the
// request would exceed the pool's configured capacity.
var ErrOutOfPool = errors.New("pool: out of pool")

var backing bytebufferpool.Pool

// structs recycles the *Pool wrapper itself (not its backing buffer)
// across the GOMAXPROCS-striped sub-pools PerCPU provides, so the
// high-connection-count daemon modes (SharedInternalLoop, WorkerPool)
// that call Create/Destroy once per request don't hit the heap
// allocator for the wrapper struct on every one.
var structs = NewPerCPU(func() *Pool { return &Pool{} })

// Pool is a single-owner bump allocator bound to one connection's
// in-flight request. It is not safe for concurrent use; a connection
// owns its pool exclusively (see the connection-ownership rules in the
// data model).
type Pool struct {
	buf      *bytebufferpool.ByteBuffer
	capacity int
	used     int
	lastLen  int // length of the most recent allocation, for Reallocate
}

// Create reserves capacity bytes for one request. The backing storage
// comes from a shared bytebufferpool so that repeated Create/Destroy
// cycles across connections reuse already-grown buffers instead of
// hitting the heap allocator on every request; the *Pool wrapper itself
// comes from the per-CPU struct pool above for the same reason.
func Create(capacity int) *Pool {
	b := backing.Get()
	if cap(b.B) < capacity {
		b.B = make([]byte, 0, capacity)
	}
	p := structs.Get()
	p.buf = b
	p.capacity = capacity
	p.used = 0
	p.lastLen = 0
	return p
}

// Alloc returns a writable range of n bytes, or ErrOutOfPool when the
// remaining capacity is less than n.
func (p *Pool) Alloc(n int) ([]byte, error) {
	if n < 0 || p.used+n > p.capacity {
		return nil, ErrOutOfPool
	}
	if p.used+n > len(p.buf.B) {
		p.buf.B = append(p.buf.B, make([]byte, p.used+n-len(p.buf.B))...)
	}
	out := p.buf.B[p.used : p.used+n : p.used+n]
	p.used += n
	p.lastLen = n
	return out, nil
}

// Reallocate grows the most recently returned allocation in place.
// oldN must equal the size requested by the matching Alloc/Reallocate
// call; reallocating any allocation other than the most recent one is
// not supported and returns ErrOutOfPool.
func (p *Pool) Reallocate(ptr []byte, oldN, newN int) ([]byte, error) {
	if oldN != p.lastLen || len(ptr) != oldN {
		return nil, ErrOutOfPool
	}
	if oldN > 0 && &ptr[0] != &p.buf.B[p.used-oldN] {
		// Same size as the most recent allocation, but a different one.
		return nil, ErrOutOfPool
	}
	grow := newN - oldN
	if grow < 0 {
		// Shrinking the most recent allocation always succeeds.
		p.used += grow
		p.lastLen = newN
		return ptr[:newN], nil
	}
	if p.used+grow > p.capacity {
		return nil, ErrOutOfPool
	}
	if p.used+grow > len(p.buf.B) {
		p.buf.B = append(p.buf.B, make([]byte, p.used+grow-len(p.buf.B))...)
	}
	out := p.buf.B[p.used-oldN : p.used-oldN+newN : p.used-oldN+newN]
	p.used += grow
	p.lastLen = newN
	return out, nil
}

// Used reports the number of bytes currently allocated from the pool.
func (p *Pool) Used() int { return p.used }

// Capacity reports the pool's configured ceiling.
func (p *Pool) Capacity() int { return p.capacity }

// Reset invalidates every allocation made so far so the same backing
// storage can serve the next pipelined request without returning memory
// to the system.
func (p *Pool) Reset() {
	p.used = 0
	p.lastLen = 0
	p.buf.B = p.buf.B[:0]
}

// Destroy releases the backing storage back to the shared buffer pool
// and the wrapper itself back to the per-CPU struct pool. The Pool must
// not be used afterward.
func (p *Pool) Destroy() {
	if p.buf == nil {
		return
	}
	backing.Put(p.buf)
	p.buf = nil
	p.capacity = 0
	p.used = 0
	p.lastLen = 0
	structs.Put(p)
}
