// File: lowlevel/server/dispatch.go
// Package server implements the caller-facing event callbacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/ticknet/transport/tcp"
)

// Decision is the accept-decision callback's verdict on a new connection.
type Decision int

const (
	// Keep admits the connection into the server's set. It is the zero value,
	// so an accept callback that has no opinion keeps the connection.
	Keep Decision = iota
	// Reject discards the connection; the server closes its descriptor.
	Reject
	// Detach hands ownership to the caller; the server neither admits nor closes it.
	Detach
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Reject:
		return "reject"
	case Detach:
		return "detach"
	default:
		return "unknown"
	}
}

// AcceptFunc decides the fate of a freshly accepted connection.
type AcceptFunc func(c *tcp.Conn) Decision

// DataFunc receives one complete inbound message, delimiter stripped.
type DataFunc func(c *tcp.Conn, payload []byte)

// DropFunc is told about a connection after it has been evicted.
type DropFunc func(c *tcp.Conn)

// Dispatcher bundles the three callbacks. Methods are invoked synchronously
// on the goroutine that called the triggering Server method.
type Dispatcher interface {
	OnAccept(c *tcp.Conn) Decision
	OnData(c *tcp.Conn, payload []byte)
	OnDrop(c *tcp.Conn)
}

// DispatchFuncs adapts optional function values to Dispatcher.
// A nil Accept keeps every connection.
type DispatchFuncs struct {
	Accept AcceptFunc
	Data   DataFunc
	Drop   DropFunc
}

func (d DispatchFuncs) OnAccept(c *tcp.Conn) Decision {
	if d.Accept == nil {
		return Keep
	}
	return d.Accept(c)
}

func (d DispatchFuncs) OnData(c *tcp.Conn, payload []byte) {
	if d.Data != nil {
		d.Data(c, payload)
	}
}

func (d DispatchFuncs) OnDrop(c *tcp.Conn) {
	if d.Drop != nil {
		d.Drop(c)
	}
}

// Middleware augments a Dispatcher.
type Middleware func(Dispatcher) Dispatcher

// NewDispatchChain applies middleware in order: first in slice is outermost.
func NewDispatchChain(base Dispatcher, mw ...Middleware) Dispatcher {
	d := base
	for i := len(mw) - 1; i >= 0; i-- {
		d = mw[i](d)
	}
	return d
}

// LoggingMiddleware logs accepts and drops at info level and payload sizes at debug.
func LoggingMiddleware(next Dispatcher) Dispatcher {
	return &loggingDispatcher{next: next, log: log.WithField("layer", "dispatch")}
}

type loggingDispatcher struct {
	next Dispatcher
	log  *logrus.Entry
}

func (l *loggingDispatcher) OnAccept(c *tcp.Conn) Decision {
	d := l.next.OnAccept(c)
	l.log.WithFields(logrus.Fields{"addr": c.Addr(), "decision": d}).Info("accepted")
	return d
}

func (l *loggingDispatcher) OnData(c *tcp.Conn, payload []byte) {
	l.log.WithFields(logrus.Fields{"addr": c.Addr(), "bytes": len(payload)}).Debug("message")
	l.next.OnData(c, payload)
}

func (l *loggingDispatcher) OnDrop(c *tcp.Conn) {
	l.log.WithField("addr", c.Addr()).WithError(c.Err()).Info("dropped")
	l.next.OnDrop(c)
}
