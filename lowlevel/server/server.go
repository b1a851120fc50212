// File: lowlevel/server/server.go
// Package server provides a caller-driven, multiplexed TCP server: one
// listening socket plus an ordered set of live connections, advanced one
// tick at a time by the host application.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/control"
	"github.com/momentics/ticknet/internal/logging"
	"github.com/momentics/ticknet/reactor"
	"github.com/momentics/ticknet/transport/tcp"
)

var log = logging.PackageLogger("server")

// Server owns a listening socket and the set of member connections.
//
// A Server starts no goroutines and is not safe for concurrent use: one
// goroutine drives Listen, AcceptWithBudget, PollReceive, FlushAll and
// Cleanup, or callers serialize access themselves (see facade.Host).
type Server struct {
	cfg     *Config
	state   api.ServerState
	ln      *tcp.Listener
	conns   []*tcp.Conn // insertion order
	members map[*tcp.Conn]struct{}
	polls   reactor.PollSet
	metrics *control.Metrics
	log     *logrus.Entry
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics publishes server counters into m.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithProbes registers connection and state probes on dp.
func WithProbes(dp *control.DebugProbes) Option {
	return func(s *Server) {
		dp.RegisterProbe("server.connections", func() any { return len(s.conns) })
		dp.RegisterProbe("server.state", func() any { return s.state.String() })
	}
}

// NewServer constructs an unbound Server. A nil cfg uses DefaultConfig.
func NewServer(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:     cfg,
		members: make(map[*tcp.Conn]struct{}),
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = control.NewMetrics("server")
	}
	return s
}

// Config returns the server configuration.
func (s *Server) Config() *Config { return s.cfg }

// Metrics returns the server counters.
func (s *Server) Metrics() *control.Metrics { return s.metrics }

// State returns the listener lifecycle state.
func (s *Server) State() api.ServerState { return s.state }

// Listening reports whether Listen has succeeded and Close has not been called.
func (s *Server) Listening() bool { return s.state == api.StateListening }

// Port returns the bound port, or 0 when not listening.
func (s *Server) Port() int {
	if s.ln == nil {
		return 0
	}
	return s.ln.Port()
}

// Len returns the number of member connections.
func (s *Server) Len() int { return len(s.conns) }

// Connections returns the members in insertion order.
func (s *Server) Connections() []*tcp.Conn {
	out := make([]*tcp.Conn, len(s.conns))
	copy(out, s.conns)
	return out
}

// Listen binds all interfaces on port with SO_REUSEADDR and the configured
// backlog. Failures are returned as *api.ListenError naming the failed
// step, and the Server stays unbound so the caller may retry. A Server
// listens at most once.
func (s *Server) Listen(port int) error {
	switch s.state {
	case api.StateListening:
		return api.ErrAlreadyListening
	case api.StateClosed:
		return api.ErrServerClosed
	}
	ln, err := tcp.Listen(port, s.cfg.Backlog, tcp.WithMaxFrameSize(s.cfg.MaxFrameSize))
	if err != nil {
		s.log.WithError(err).WithField("port", port).Error("listen failed")
		s.metrics.Incr("listen_error")
		return err
	}
	s.ln = ln
	s.state = api.StateListening
	s.log = log.WithField("port", ln.Port())
	s.log.Info("listening")
	return nil
}

// AcceptWithBudget accepts pending connections until timeout has been
// spent, maxCount connections were accepted (maxCount < 0 means no bound),
// or a poll finds nothing pending. The first poll always happens, so a zero
// timeout is one immediate check.
//
// Each new connection is passed to decide before it joins the set: Keep (or
// a nil decide) admits it, Reject closes it, Detach leaves it to the caller.
// When MaxConnections is reached, new connections are closed without
// consulting decide. Every accepted connection counts toward maxCount.
//
// Running out of descriptors or kernel memory ends the call without an
// error; the pending connections stay queued for a later call. Other accept
// errors are returned.
//
// The returned duration is the time spent in this call, letting the caller
// split one tick's budget across several sources.
func (s *Server) AcceptWithBudget(timeout time.Duration, maxCount int, decide AcceptFunc) (time.Duration, error) {
	if s.state != api.StateListening {
		return 0, api.ErrNotListening
	}
	start := time.Now()
	accepted := 0
	for first := true; maxCount < 0 || accepted < maxCount; first = false {
		elapsed := time.Since(start)
		if !first && elapsed >= timeout {
			break
		}
		r, _, err := reactor.WaitReadable(s.ln.FD(), timeout-elapsed)
		if err != nil {
			return time.Since(start), err
		}
		if !r.CanRead() {
			break
		}
		c, err := s.ln.Accept()
		if err != nil {
			if tcp.Transient(err) {
				s.metrics.Incr("accept_transient")
				continue
			}
			if tcp.Exhausted(err) {
				// retried next call, once cleanup has released descriptors
				s.log.WithError(err).Warn("accept deferred")
				s.metrics.Incr("accept_exhausted")
				break
			}
			s.log.WithError(err).Warn("accept failed")
			s.metrics.Incr("accept_error")
			return time.Since(start), err
		}
		if c == nil {
			break
		}
		accepted++
		s.admit(c, decide)
	}
	return time.Since(start), nil
}

func (s *Server) admit(c *tcp.Conn, decide AcceptFunc) {
	s.metrics.Incr("accepted")
	if s.cfg.MaxConnections > 0 && len(s.conns) >= s.cfg.MaxConnections {
		s.log.WithField("addr", c.Addr()).Warn("connection limit reached, closing")
		s.metrics.Incr("rejected_full")
		_ = c.Disconnect()
		return
	}
	d := Keep
	if decide != nil {
		d = decide(c)
	}
	switch d {
	case Reject:
		s.metrics.Incr("rejected")
		if err := c.Disconnect(); err != nil && !errors.Is(err, api.ErrAlreadyDisconnected) {
			s.log.WithError(err).WithField("addr", c.Addr()).Debug("close rejected connection")
		}
	case Detach:
		s.metrics.Incr("detached")
	default:
		if c.Closed() {
			return
		}
		s.AddConnection(c)
	}
}

// AddConnection admits c into the set. It returns false if c is nil,
// already disconnected, or already a member.
func (s *Server) AddConnection(c *tcp.Conn) bool {
	if c == nil || c.Closed() {
		return false
	}
	if _, ok := s.members[c]; ok {
		return false
	}
	s.members[c] = struct{}{}
	s.conns = append(s.conns, c)
	s.metrics.Set("live", int64(len(s.conns)))
	return true
}

// Contains reports whether c is a member.
func (s *Server) Contains(c *tcp.Conn) bool {
	_, ok := s.members[c]
	return ok
}

// PollReceive checks every member for inbound data with one zero-timeout
// poll and delivers each complete, non-empty message to onData, visiting
// members in insertion order and messages in arrival order. Members that
// fail during the pass stay in the set until Cleanup. Connections admitted
// by onData are first visited on the next pass. Returns the number of
// messages delivered.
func (s *Server) PollReceive(onData DataFunc) int {
	conns := s.conns[:len(s.conns):len(s.conns)]
	if len(conns) == 0 {
		return 0
	}
	s.polls.Reset()
	for _, c := range conns {
		s.polls.Add(c.FD())
	}
	_, pollErr := s.polls.Wait(0)
	if pollErr != nil {
		// fall back to each connection's own readiness check
		s.log.WithError(pollErr).Warn("batched poll failed")
	}

	delivered := 0
	for i, c := range conns {
		var msg []byte
		if pollErr != nil || s.polls.Ready(i).CanRead() {
			msg = c.Receive(s.cfg.ReadBufferSize)
		} else {
			msg = c.Next()
		}
		for msg != nil {
			if len(msg) > 0 && onData != nil {
				onData(c, msg)
				delivered++
			}
			msg = c.Next()
		}
	}
	if delivered > 0 {
		s.metrics.Set("delivered_last", int64(delivered))
	}
	return delivered
}

// Broadcast queues msg on every member except exclude (which may be nil).
// Nothing is transmitted until FlushAll.
func (s *Server) Broadcast(msg []byte, exclude *tcp.Conn) {
	for _, c := range s.conns {
		if c == exclude {
			continue
		}
		c.Send(msg)
	}
}

// FlushAll gives every member one non-blocking write attempt, in insertion order.
func (s *Server) FlushAll() {
	for _, c := range s.conns {
		c.Flush()
	}
}

// Cleanup evicts every member that is failed at the time of the call:
// the set is rebuilt without them (survivors keep their relative order),
// then each evicted connection is disconnected and reported to onDrop
// exactly once. Returns the number evicted.
func (s *Server) Cleanup(onDrop DropFunc) int {
	var evict []int
	for i, c := range s.conns {
		if c.Failed() {
			evict = append(evict, i)
		}
	}
	if len(evict) == 0 {
		return 0
	}

	dropped := make([]*tcp.Conn, 0, len(evict))
	kept := make([]*tcp.Conn, 0, len(s.conns)-len(evict))
	next := 0
	for i, c := range s.conns {
		if next < len(evict) && evict[next] == i {
			next++
			dropped = append(dropped, c)
			delete(s.members, c)
			continue
		}
		kept = append(kept, c)
	}
	s.conns = kept
	s.metrics.Set("live", int64(len(s.conns)))

	for _, c := range dropped {
		if err := c.Disconnect(); err != nil && !errors.Is(err, api.ErrAlreadyDisconnected) {
			s.log.WithError(err).WithField("addr", c.Addr()).Debug("close dropped connection")
		}
		s.log.WithError(c.Err()).WithField("addr", c.Addr()).Debug("evicted")
		s.metrics.Incr("dropped")
		if onDrop != nil {
			onDrop(c)
		}
	}
	return len(dropped)
}

// Close disconnects every member and closes the listening socket. The
// Server cannot listen again afterwards.
func (s *Server) Close() error {
	for _, c := range s.conns {
		_ = c.Disconnect()
	}
	s.conns = nil
	s.members = make(map[*tcp.Conn]struct{})
	s.metrics.Set("live", 0)
	prev := s.state
	s.state = api.StateClosed
	if prev == api.StateListening {
		s.log.Info("closed")
		return s.ln.Close()
	}
	return nil
}
