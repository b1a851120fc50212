// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool recycles fixed-size scratch buffers for socket reads.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool creates a pool handing out buffers of len size.
func NewBytePool(size int) *BytePool {
	b := &BytePool{size: size}
	b.p.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return b
}

// Size returns the length of buffers handed out by GetBuffer.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of len Size. Contents are unspecified.
func (b *BytePool) GetBuffer() []byte {
	return (*b.p.Get().(*[]byte))[:b.size]
}

// PutBuffer returns a buffer to the pool. Buffers of the wrong capacity are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size {
		return
	}
	buf = buf[:b.size]
	b.p.Put(&buf)
}

var (
	scratchMu    sync.Mutex
	scratchPools = map[int]*BytePool{}
)

// Scratch returns the shared pool for buffers of the given size.
func Scratch(size int) *BytePool {
	scratchMu.Lock()
	defer scratchMu.Unlock()
	p, ok := scratchPools[size]
	if !ok {
		p = NewBytePool(size)
		scratchPools[size] = p
	}
	return p
}
