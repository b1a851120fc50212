//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Stub implementation for unsupported platforms.

package reactor

import (
	"time"

	"github.com/momentics/ticknet/api"
)

type pollBuffer struct{}

func (p *PollSet) wait(int) (int, error) {
	return 0, api.ErrNotSupported
}

// WaitReadable returns api.ErrNotSupported on this platform.
func WaitReadable(int, time.Duration) (Readiness, time.Duration, error) {
	return 0, 0, api.ErrNotSupported
}

// WaitWritable returns api.ErrNotSupported on this platform.
func WaitWritable(int, time.Duration) (Readiness, time.Duration, error) {
	return 0, 0, api.ErrNotSupported
}
