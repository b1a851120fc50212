// File: facade/host.go
// Package facade drives a tick server on behalf of the application.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host pairs one server.Server with one server.Dispatcher and advances it a
// tick at a time: accept within the configured budget, deliver inbound
// messages, flush outbound queues, evict failed connections. A single mutex
// serialises ticks with work submitted from other goroutines through Do.

package facade

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/control"
	"github.com/momentics/ticknet/internal/logging"
	"github.com/momentics/ticknet/lowlevel/server"
)

var log = logging.PackageLogger("facade")

// Host owns a Server and drives it with a Dispatcher.
type Host struct {
	cfg      *server.Config
	srv      *server.Server
	dispatch server.Dispatcher
	stats    *control.TickStats
	probes   *control.DebugProbes
	metrics  *control.Metrics
	log      *logrus.Entry

	mu      sync.Mutex // guards srv and started
	started bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Host)(nil)

// New validates cfg and builds an unstarted Host. A nil cfg uses
// server.DefaultConfig; a nil dispatcher keeps every connection and ignores
// all messages.
func New(cfg *server.Config, d server.Dispatcher, mw ...server.Middleware) (*Host, error) {
	if cfg == nil {
		cfg = server.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "facade config")
	}
	if d == nil {
		d = server.DispatchFuncs{}
	}
	h := &Host{
		cfg:      cfg,
		dispatch: server.NewDispatchChain(d, mw...),
		stats:    control.NewTickStats(control.DefaultTickWindow),
		probes:   control.NewDebugProbes(),
		metrics:  control.NewMetrics("server"),
		log:      log,
	}
	control.RegisterPlatformProbes(h.probes)
	h.probes.RegisterProbe("host.tick", func() any { return h.stats.Summary() })
	h.srv = server.NewServer(cfg, server.WithMetrics(h.metrics), server.WithProbes(h.probes))
	return h, nil
}

// Start binds the configured port. Subsequent calls have no effect.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if err := h.srv.Listen(h.cfg.Port); err != nil {
		return err
	}
	h.started = true
	h.log = log.WithField("port", h.srv.Port())
	return nil
}

// Stop closes the server and every member connection. Calling Stop on a
// Host that never started is a no-op.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.started = false
	h.log.WithField("ticks", h.stats.Summary().Count).Info("stopping")
	return h.srv.Close()
}

// Shutdown implements api.GracefulShutdown by delegating to Stop.
func (h *Host) Shutdown() error {
	return h.Stop()
}

// Tick performs one accept, receive, flush and cleanup pass. An accept
// failure is recorded in the report and does not stop the remaining
// phases; only a Host that is not listening returns an error.
func (h *Host) Tick() (api.TickReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	var rep api.TickReport
	before := h.srv.Len()
	spent, err := h.srv.AcceptWithBudget(h.cfg.AcceptTimeout, h.cfg.AcceptMax, h.dispatch.OnAccept)
	if err != nil {
		if errors.Is(err, api.ErrNotListening) {
			return rep, err
		}
		h.log.WithError(err).Warn("accept failed, continuing tick")
		h.metrics.Incr("tick_accept_error")
		rep.AcceptErr = err
	}
	rep.AcceptSpent = spent
	rep.Accepted = h.srv.Len() - before
	rep.Delivered = h.srv.PollReceive(h.dispatch.OnData)
	h.srv.FlushAll()
	rep.Dropped = h.srv.Cleanup(h.dispatch.OnDrop)
	rep.Live = h.srv.Len()
	rep.Duration = time.Since(start)
	h.stats.Observe(rep.Duration)
	return rep, nil
}

// Run starts the Host if needed and ticks every Config.TickInterval until
// ctx is done, then stops it. A tick error ends the loop and is returned.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(); err != nil {
		return err
	}
	defer h.Stop()

	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rep, err := h.Tick()
			if err != nil {
				h.log.WithError(err).Error("tick failed")
				return err
			}
			if rep.Duration > h.cfg.TickInterval {
				h.log.WithField("took", rep.Duration).Warn("tick overran interval")
			}
		}
	}
}

// Do runs fn with exclusive access to the server, for example to broadcast
// from a goroutine other than the one calling Run.
func (h *Host) Do(fn func(*server.Server)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.srv)
}

// Port returns the bound port, or 0 before Start.
func (h *Host) Port() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.srv.Port()
}

// Stats summarises recent tick durations.
func (h *Host) Stats() control.TickSummary {
	return h.stats.Summary()
}

// Metrics returns the server counters.
func (h *Host) Metrics() *control.Metrics {
	return h.metrics
}

// DumpState evaluates every registered debug probe.
func (h *Host) DumpState() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.probes.DumpState()
}
