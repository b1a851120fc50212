// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

import "time"

// Delimiter terminates every message on the wire.
const Delimiter byte = '\n'

// Unlimited disables the accept count bound.
const Unlimited = -1

// ServerState enumerates the lifecycle of a listening server.
type ServerState int

const (
	StateUnbound ServerState = iota
	StateListening
	StateClosed
)

func (s ServerState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TickReport summarises one pass of accept, receive, flush and cleanup.
type TickReport struct {
	Accepted    int
	Delivered   int
	Dropped     int
	Live        int
	AcceptSpent time.Duration
	Duration    time.Duration
	AcceptErr   error // accept failure; the rest of the tick still ran
}
