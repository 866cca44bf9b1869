package frame

import "sync"

// Pool is a fixed-size bag of frames not currently in use. The number of
// distinct frames never changes after construction: when the bag is empty
// the caller drops the incoming buffer instead of allocating, which bounds
// memory and keeps allocation off the capture thread.
//
// Buffers are reshaped lazily: Acquire hands out whatever shape the frame
// last had, and the caller reallocates only on descriptor mismatch.
type Pool struct {
	mu   sync.Mutex
	free []*Frame
	size int
}

// NewPool creates a pool of n frames shaped to desc. n must be positive.
func NewPool(n int, desc Descriptor) *Pool {
	p := &Pool{
		free: make([]*Frame, 0, n),
		size: n,
	}
	for i := 0; i < n; i++ {
		p.free = append(p.free, New(desc))
	}
	return p
}

// Acquire removes a frame from the pool. Returns (nil, false) when none is
// available; it never blocks and never allocates.
func (p *Pool) Acquire() (*Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return nil, false
	}
	f := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return f, true
}

// Release returns a frame to the pool. Releasing nil is a no-op.
func (p *Pool) Release(f *Frame) {
	if f == nil {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, f)
	p.mu.Unlock()
}

// Size returns the fixed number of frames the pool was created with.
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of frames currently in the pool.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
