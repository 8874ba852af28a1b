// Package bufpool provides a two-tier buffer pool for frame I/O.
//
// Chat frames have a fixed geometry: a 40-byte prefix followed by at
// most 1023 payload bytes. The pool therefore keeps two size classes —
// a small class for prefix reads and token scratch, and a frame class
// that fits any complete frame. Requests larger than the frame class
// (which a conforming peer never produces) are allocated directly and
// not pooled.
//
// All operations are safe for concurrent use; the classes are backed
// by sync.Pool.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// Size classes. SmallSize covers frame prefixes and parsing scratch,
// FrameSize covers a maximal prefix+payload frame with headroom.
const (
	SmallSize = 256
	FrameSize = 2048
)

// Pool manages the two byte-slice classes. The zero value is not
// usable; call NewPool.
type Pool struct {
	small sync.Pool
	frame sync.Pool
}

// NewPool creates a buffer pool with the standard size classes.
func NewPool() *Pool {
	p := &Pool{}
	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, SmallSize)
			return &buf
		},
	}
	p.frame = sync.Pool{
		New: func() any {
			buf := make([]byte, FrameSize)
			return &buf
		},
	}
	return p
}

// Get returns a byte slice of length size backed by a pooled buffer
// of the smallest class that fits. The caller must hand the slice
// back with Put when done; oversize requests bypass the pool and may
// simply be dropped.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= SmallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= FrameSize:
		bufPtr = p.frame.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer obtained from Get to its class. Buffers whose
// capacity matches no class are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case SmallSize:
		full := buf[:cap(buf)]
		p.small.Put(&full)
	case FrameSize:
		full := buf[:cap(buf)]
		p.frame.Put(&full)
	}
}

// globalPool serves the package-level Get/Put used by the framer and
// the broadcast path.
var globalPool = NewPool()

// Get returns a byte slice of length size from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
