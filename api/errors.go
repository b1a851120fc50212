// Package api
// Author: momentics <momentics@gmail.com>
//
// Error types shared by the listener, connection and legacy client layers.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrNotListening        = errors.New("server is not listening")
	ErrAlreadyListening    = errors.New("server is already listening")
	ErrInvalidPort         = errors.New("port must be >= 0 and < 65536")
	ErrAlreadyDisconnected = errors.New("connection already disconnected")
	ErrFrameTooLong        = errors.New("inbound message exceeds frame limit")
	ErrConnectionClosed    = errors.New("connection closed by peer")
	ErrDisconnected        = errors.New("connection disconnected locally")
	ErrServerClosed        = errors.New("server closed")
	ErrNotSupported        = errors.New("operation not supported on this platform")
)

// ListenStage identifies which step of listener setup failed.
type ListenStage int

const (
	StageSocket ListenStage = iota
	StageOption
	StageBind
	StageListen
)

func (s ListenStage) String() string {
	switch s {
	case StageSocket:
		return "socket"
	case StageOption:
		return "setsockopt"
	case StageBind:
		return "bind"
	case StageListen:
		return "listen"
	default:
		return "unknown"
	}
}

// ListenError is the structured result of a failed listen.
type ListenError struct {
	Stage ListenStage
	Port  int
	Err   error
}

// Error implements the error interface.
func (e *ListenError) Error() string {
	return fmt.Sprintf("listen :%d: %s: %v", e.Port, e.Stage, e.Err)
}

// Unwrap exposes the underlying OS error.
func (e *ListenError) Unwrap() error { return e.Err }

// DialError reports a failed outbound connection together with its legacy code.
type DialError struct {
	Code ErrorCode
	Host string
	Port int
	Err  error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s:%d: %s: %v", e.Host, e.Port, e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *DialError) Unwrap() error { return e.Err }
