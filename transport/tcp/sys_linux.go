//go:build linux
// +build linux

// File: transport/tcp/sys_linux.go
// Author: momentics <momentics@gmail.com>
//
// Raw socket syscalls used by Conn.

package tcp

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

// sysSend gathers bufs into one sendmsg. MSG_NOSIGNAL turns a broken pipe
// into EPIPE instead of SIGPIPE.
func sysSend(fd int, bufs [][]byte) (int, error) {
	return unix.SendmsgBuffers(fd, bufs, nil, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
}

func sysRead(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func sysShutdown(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_RDWR)
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func isTemporary(err error) bool {
	return err == unix.EAGAIN || err == unix.EINTR
}

// Transient reports whether an accept error only concerns the one pending
// connection, so accepting may continue.
func Transient(err error) bool {
	switch cause(err) {
	case unix.ECONNABORTED, unix.EINTR, unix.EPROTO, unix.EPERM:
		return true
	}
	return false
}

// Exhausted reports whether an accept error comes from a process or
// system resource limit. The pending connection stays queued and may be
// accepted once descriptors or memory are released.
func Exhausted(err error) bool {
	switch cause(err) {
	case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM:
		return true
	}
	return false
}

// NewConn adopts an already connected stream descriptor. The descriptor is
// switched to non-blocking mode and is owned by the returned Conn.
func NewConn(fd int, addr string, opts ...ConnOption) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return newConn(fd, addr, opts), nil
}

// numericHost renders the host part of sa the way getnameinfo(NI_NUMERICHOST) does.
func numericHost(sa unix.Sockaddr) string {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrFrom4(sa.Addr).String()
	case *unix.SockaddrInet6:
		return netip.AddrFrom16(sa.Addr).String()
	case *unix.SockaddrUnix:
		return sa.Name
	}
	return ""
}
