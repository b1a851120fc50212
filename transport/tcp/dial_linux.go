//go:build linux
// +build linux

// File: transport/tcp/dial_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/reactor"
)

// connectPollSlice bounds each writable wait so ctx cancellation is observed.
const connectPollSlice = 50 * time.Millisecond

// Dial opens an outbound connection to host:port. The returned Conn is not
// a member of any server. Errors are *api.DialError carrying the legacy
// UNABLE_TO_* code of the step that failed.
func Dial(ctx context.Context, host string, port int, opts ...ConnOption) (*Conn, error) {
	dialErr := func(code api.ErrorCode, err error) error {
		return &api.DialError{Code: code, Host: host, Port: port, Err: err}
	}
	if port < 0 || port > 65535 {
		return nil, dialErr(api.UnableToConnect, api.ErrInvalidPort)
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		if err == nil {
			err = errors.New("no addresses")
		}
		return nil, dialErr(api.UnableToGetHost, err)
	}
	ip := addrs[0].IP
	for _, a := range addrs {
		if a.IP.To4() != nil {
			ip = a.IP
			break
		}
	}

	var (
		family int
		sa     unix.Sockaddr
	)
	if v4 := ip.To4(); v4 != nil {
		in4 := &unix.SockaddrInet4{Port: port}
		copy(in4.Addr[:], v4)
		family, sa = unix.AF_INET, in4
	} else {
		in6 := &unix.SockaddrInet6{Port: port}
		copy(in6.Addr[:], ip.To16())
		family, sa = unix.AF_INET6, in6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, dialErr(api.UnableToOpenSocket, errors.WithStack(err))
	}
	if err := connect(ctx, fd, sa); err != nil {
		unix.Close(fd)
		return nil, dialErr(api.UnableToConnect, err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	c := newConn(fd, ip.String(), opts)
	c.log.Debug("dialed")
	return c, nil
}

func connect(ctx context.Context, fd int, sa unix.Sockaddr) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS && err != unix.EINTR {
		return errors.WithStack(err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := connectPollSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < wait {
				wait = left
			}
		}
		r, _, err := reactor.WaitWritable(fd, wait)
		if err != nil {
			return err
		}
		if r&(reactor.Writable|reactor.Hangup) != 0 {
			break
		}
	}
	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.WithStack(err)
	}
	if soErr != 0 {
		return errors.WithStack(unix.Errno(soErr))
	}
	return nil
}
