// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides time-bounded readiness polling over raw socket
// descriptors. Nothing here performs I/O; callers learn whether a read,
// write or accept would make progress and act on it themselves.
package reactor

import "time"

// Readiness is a bitmask of descriptor conditions.
type Readiness uint8

const (
	Readable Readiness = 1 << iota
	Writable
	Hangup  // peer closed or socket error pending
	Invalid // descriptor not open
)

// CanRead reports whether a read would not block. EOF and pending errors
// count as readable so the caller observes them through read.
func (r Readiness) CanRead() bool {
	return r&(Readable|Hangup) != 0
}

// PollSet batches many descriptors into a single poll call.
// A PollSet is reusable across ticks via Reset and is not safe for
// concurrent use.
type PollSet struct {
	fds   []int
	ready []Readiness
	raw   pollBuffer
}

// Reset empties the set while keeping its allocations.
func (p *PollSet) Reset() {
	p.fds = p.fds[:0]
	p.ready = p.ready[:0]
}

// Add registers fd for read interest and returns its index.
func (p *PollSet) Add(fd int) int {
	p.fds = append(p.fds, fd)
	p.ready = append(p.ready, 0)
	return len(p.fds) - 1
}

// Len returns the number of registered descriptors.
func (p *PollSet) Len() int { return len(p.fds) }

// Ready returns the conditions observed for index i by the last Wait.
func (p *PollSet) Ready(i int) Readiness { return p.ready[i] }

// Wait polls every registered descriptor for at most timeout and returns
// how many reported any condition. A zero timeout is an immediate check.
func (p *PollSet) Wait(timeout time.Duration) (int, error) {
	for i := range p.ready {
		p.ready[i] = 0
	}
	if len(p.fds) == 0 {
		return 0, nil
	}
	return p.wait(toMillis(timeout))
}

// toMillis converts a budget to a poll timeout. Sub-millisecond remainders
// round down so the budget is never overrun by the conversion.
func toMillis(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Millisecond)
}
