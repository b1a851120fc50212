//go:build linux
// +build linux

// File: transport/tcp/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/ticknet/api"
)

// DefaultBacklog is the pending-connection queue length passed to listen(2).
const DefaultBacklog = 1024

// Listener is a non-blocking IPv4 listening socket bound to all interfaces.
type Listener struct {
	fd     int
	port   int
	opts   []ConnOption
	closed bool
}

// Listen creates, configures, binds and listens on 0.0.0.0:port. Each
// failing step yields an *api.ListenError naming the step; the descriptor
// is closed before returning. Port 0 binds an ephemeral port.
func Listen(port, backlog int, opts ...ConnOption) (*Listener, error) {
	if port < 0 || port > 65535 {
		return nil, &api.ListenError{Stage: api.StageBind, Port: port, Err: api.ErrInvalidPort}
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &api.ListenError{Stage: api.StageSocket, Port: port, Err: errors.WithStack(err)}
	}
	fail := func(stage api.ListenStage, err error) (*Listener, error) {
		unix.Close(fd)
		return nil, &api.ListenError{Stage: stage, Port: port, Err: errors.WithStack(err)}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail(api.StageOption, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		return fail(api.StageBind, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail(api.StageListen, err)
	}
	bound := port
	if sa, err := unix.Getsockname(fd); err == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			bound = in4.Port
		}
	}
	log.WithField("port", bound).Debug("listening")
	return &Listener{fd: fd, port: bound, opts: opts}, nil
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Port returns the bound port.
func (l *Listener) Port() int { return l.port }

// Accept takes one pending connection without blocking. It returns
// (nil, nil) when none is pending.
func (l *Listener) Accept() (*Conn, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, nil
		}
		return nil, errors.Wrap(err, "accept")
	}
	return newConn(nfd, numericHost(sa), l.opts), nil
}

// Close closes the listening descriptor. Subsequent calls are no-ops.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}
