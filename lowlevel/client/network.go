// File: lowlevel/client/network.go
// Package client implements a point-to-point TCP client reporting
// results as numeric api.ErrorCode values.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Network carries raw bytes with no framing. It is meant for hosts that
// poll it once per frame: Receive never waits and Send makes one
// non-blocking write attempt.

package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/internal/logging"
	"github.com/momentics/ticknet/transport/tcp"
)

// DefaultConnectTimeout bounds name resolution plus the TCP handshake.
const DefaultConnectTimeout = 5 * time.Second

var log = logging.PackageLogger("client")

// Network is a single outbound connection.
type Network struct {
	// ConnectTimeout bounds Connect; zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	conn *tcp.Conn
	log  *logrus.Entry
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Network)(nil)

// NewNetwork returns a disconnected client.
func NewNetwork() *Network {
	return &Network{ConnectTimeout: DefaultConnectTimeout, log: log}
}

// Connected reports whether a connection is open.
func (n *Network) Connected() bool { return n.conn != nil }

// Connect opens a connection to hostname:port, replacing any previous one.
// It returns UnableToOpenSocket, UnableToGetHost or UnableToConnect on failure.
func (n *Network) Connect(hostname string, port int) api.ErrorCode {
	if n.conn != nil {
		n.Disconnect()
	}
	timeout := n.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := tcp.Dial(ctx, hostname, port)
	if err != nil {
		code := api.UnableToConnect
		var de *api.DialError
		if errors.As(err, &de) {
			code = de.Code
		}
		n.logger().WithError(err).WithField("code", code).Warn("connect failed")
		return code
	}
	n.conn = c
	n.log = log.WithFields(logrus.Fields{"host": hostname, "port": port})
	n.log.Debug("connected")
	return api.NoError
}

// Send writes as much of data as the socket accepts without blocking and
// returns the byte count, NotConnected, or ConnectionLost. A lost
// connection is closed.
func (n *Network) Send(data []byte) int64 {
	if n.conn == nil {
		return int64(api.NotConnected)
	}
	w, err := n.conn.WriteRaw(data)
	if err != nil {
		n.lost(err)
		return int64(api.ConnectionLost)
	}
	return int64(w)
}

// Receive reads whatever is available into buf without waiting. It
// returns the byte count (0 when nothing is readable), NotConnected, or
// ConnectionLost when the peer closed or the read failed.
func (n *Network) Receive(buf []byte) int64 {
	if n.conn == nil {
		return int64(api.NotConnected)
	}
	r, err := n.conn.ReadRaw(buf)
	if err != nil {
		n.lost(err)
		return int64(api.ConnectionLost)
	}
	return int64(r)
}

// Disconnect closes the connection. It returns AlreadyDisconnected when
// there is none and CannotCloseSocket when close fails; the client is
// disconnected afterwards either way.
func (n *Network) Disconnect() api.ErrorCode {
	if n.conn == nil {
		return api.AlreadyDisconnected
	}
	c := n.conn
	n.conn = nil
	if err := c.Disconnect(); err != nil {
		n.logger().WithError(err).Warn("close failed")
		return api.CannotCloseSocket
	}
	n.logger().Debug("disconnected")
	return api.NoError
}

// Shutdown implements api.GracefulShutdown.
func (n *Network) Shutdown() error {
	if code := n.Disconnect(); code == api.CannotCloseSocket {
		return errors.New(code.DisconnectString())
	}
	return nil
}

func (n *Network) lost(err error) {
	n.logger().WithError(err).Info("connection lost")
	c := n.conn
	n.conn = nil
	_ = c.Disconnect()
}

func (n *Network) logger() *logrus.Entry {
	if n.log == nil {
		return log
	}
	return n.log
}
