//go:build !linux
// +build !linux

// File: transport/tcp/sys_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package tcp

import (
	"context"

	"github.com/momentics/ticknet/api"
)

// DefaultBacklog is the pending-connection queue length passed to listen(2).
const DefaultBacklog = 1024

func sysSend(int, [][]byte) (int, error) { return 0, api.ErrNotSupported }
func sysRead(int, []byte) (int, error)   { return 0, api.ErrNotSupported }
func sysShutdown(int) error              { return api.ErrNotSupported }
func sysClose(int) error                 { return api.ErrNotSupported }
func isTemporary(error) bool             { return false }

// Transient always reports false on this platform.
func Transient(error) bool { return false }

// Exhausted always reports false on this platform.
func Exhausted(error) bool { return false }

// NewConn returns api.ErrNotSupported on this platform.
func NewConn(int, string, ...ConnOption) (*Conn, error) { return nil, api.ErrNotSupported }

// Listener is unavailable on this platform.
type Listener struct{}

// Listen returns api.ErrNotSupported on this platform.
func Listen(port, _ int, _ ...ConnOption) (*Listener, error) {
	return nil, &api.ListenError{Stage: api.StageSocket, Port: port, Err: api.ErrNotSupported}
}

func (l *Listener) FD() int                { return -1 }
func (l *Listener) Port() int              { return 0 }
func (l *Listener) Accept() (*Conn, error) { return nil, api.ErrNotSupported }
func (l *Listener) Close() error           { return nil }

// Dial returns api.ErrNotSupported on this platform.
func Dial(_ context.Context, host string, port int, _ ...ConnOption) (*Conn, error) {
	return nil, &api.DialError{Code: api.UnableToOpenSocket, Host: host, Port: port, Err: api.ErrNotSupported}
}
