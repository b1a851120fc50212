// File: internal/framing/framer.go
// Author: momentics <momentics@gmail.com>
//
// Buffered delimiter framer. Reads are accumulated until a delimiter is seen,
// so message boundaries never depend on how the kernel splits a stream.

package framing

import (
	"bytes"

	"github.com/eapache/queue"

	"github.com/momentics/ticknet/api"
)

// Framer splits a byte stream into delimiter-terminated messages.
// It is not safe for concurrent use.
type Framer struct {
	delim   byte
	max     int
	partial []byte
	ready   *queue.Queue // complete messages, oldest first
}

// New creates a framer. maxFrame <= 0 disables the length bound.
func New(delim byte, maxFrame int) *Framer {
	return &Framer{
		delim: delim,
		max:   maxFrame,
		ready: queue.New(),
	}
}

// Write feeds stream bytes into the framer. p is not retained.
// Returns api.ErrFrameTooLong once a message grows past the bound; the
// framer must then be discarded.
func (f *Framer) Write(p []byte) error {
	for len(p) > 0 {
		i := bytes.IndexByte(p, f.delim)
		if i < 0 {
			if f.max > 0 && len(f.partial)+len(p) > f.max {
				return api.ErrFrameTooLong
			}
			f.partial = append(f.partial, p...)
			return nil
		}
		if f.max > 0 && len(f.partial)+i > f.max {
			return api.ErrFrameTooLong
		}
		msg := make([]byte, len(f.partial)+i)
		n := copy(msg, f.partial)
		copy(msg[n:], p[:i])
		f.partial = f.partial[:0]
		f.ready.Add(msg)
		p = p[i+1:]
	}
	return nil
}

// Next pops the oldest complete message.
func (f *Framer) Next() ([]byte, bool) {
	if f.ready.Length() == 0 {
		return nil, false
	}
	return f.ready.Remove().([]byte), true
}

// Pending reports how many complete messages are waiting.
func (f *Framer) Pending() int {
	return f.ready.Length()
}

// Partial reports how many bytes of an unterminated message are buffered.
func (f *Framer) Partial() int {
	return len(f.partial)
}

// Reset drops all buffered state.
func (f *Framer) Reset() {
	f.partial = nil
	f.ready = queue.New()
}

// Encode returns msg followed by delim in a fresh slice.
func Encode(msg []byte, delim byte) []byte {
	out := make([]byte, len(msg)+1)
	copy(out, msg)
	out[len(msg)] = delim
	return out
}
