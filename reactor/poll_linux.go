//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux poll(2) implementation.

package reactor

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type pollBuffer struct {
	fds []unix.PollFd
}

func (p *PollSet) wait(timeoutMs int) (int, error) {
	raw := p.raw.fds[:0]
	for _, fd := range p.fds {
		raw = append(raw, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLRDHUP})
	}
	p.raw.fds = raw

	var n int
	var err error
	for {
		n, err = unix.Poll(raw, timeoutMs)
		if err != unix.EINTR {
			break
		}
		// interrupted by signal, retry as an immediate check
		timeoutMs = 0
	}
	if err != nil {
		return 0, errors.Wrap(err, "poll")
	}
	for i := range raw {
		p.ready[i] = translate(raw[i].Revents)
	}
	return n, nil
}

func translate(rev int16) Readiness {
	var r Readiness
	if rev&unix.POLLIN != 0 {
		r |= Readable
	}
	if rev&unix.POLLOUT != 0 {
		r |= Writable
	}
	if rev&(unix.POLLHUP|unix.POLLERR|unix.POLLRDHUP) != 0 {
		r |= Hangup
	}
	if rev&unix.POLLNVAL != 0 {
		r |= Invalid
	}
	return r
}

// WaitReadable blocks for at most timeout until fd is readable (or, for a
// listening socket, has a pending connection). It returns the observed
// readiness and the time spent waiting, measured on the monotonic clock.
func WaitReadable(fd int, timeout time.Duration) (Readiness, time.Duration, error) {
	return waitOne(fd, unix.POLLIN|unix.POLLRDHUP, timeout)
}

// WaitWritable blocks for at most timeout until fd accepts writes.
func WaitWritable(fd int, timeout time.Duration) (Readiness, time.Duration, error) {
	return waitOne(fd, unix.POLLOUT, timeout)
}

func waitOne(fd int, events int16, timeout time.Duration) (Readiness, time.Duration, error) {
	start := time.Now()
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		remaining := timeout - time.Since(start)
		n, err := unix.Poll(pfd, toMillis(remaining))
		if err == unix.EINTR {
			if time.Since(start) >= timeout {
				return 0, time.Since(start), nil
			}
			continue
		}
		if err != nil {
			return 0, time.Since(start), errors.Wrapf(err, "poll fd %d", fd)
		}
		if n == 0 {
			return 0, time.Since(start), nil
		}
		return translate(pfd[0].Revents), time.Since(start), nil
	}
}
