// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements raw, non-blocking TCP endpoints for a caller-driven
// tick loop: a listening socket, accepted and dialed connections with
// buffered delimiter-framed output, and zero-wait receive.
//
// Nothing in this package starts a goroutine. A Conn is owned by a single
// caller; every method must be invoked from one goroutine at a time.
package tcp
