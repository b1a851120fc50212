// File: transport/tcp/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/internal/framing"
	"github.com/momentics/ticknet/internal/logging"
	"github.com/momentics/ticknet/pool"
	"github.com/momentics/ticknet/reactor"
)

const (
	// DefaultReadSize is the receive capacity used when a caller passes <= 0.
	DefaultReadSize = 1024
	// DefaultMaxFrameSize bounds an unterminated inbound message.
	DefaultMaxFrameSize = 64 * 1024

	// sendmsg rejects more iovecs than IOV_MAX.
	maxIovecs = 1024
)

var log = logging.PackageLogger("tcp")

// ConnOption customises a Conn at creation time.
type ConnOption func(*connOptions)

type connOptions struct {
	maxFrame int
}

// WithMaxFrameSize bounds how long an inbound message may grow before its
// delimiter arrives. n <= 0 disables the bound.
func WithMaxFrameSize(n int) ConnOption {
	return func(o *connOptions) { o.maxFrame = n }
}

// Conn is one TCP endpoint with an outbound FIFO and a latched failure flag.
type Conn struct {
	fd   int
	addr string

	out     *queue.Queue // outbound segments, oldest first
	headOff int          // bytes of the head segment already written
	outLen  int
	iov     [][]byte

	in *framing.Framer

	failed bool
	cause  error
	closed bool

	log *logrus.Entry
}

func newConn(fd int, addr string, opts []ConnOption) *Conn {
	o := connOptions{maxFrame: DefaultMaxFrameSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Conn{
		fd:   fd,
		addr: addr,
		out:  queue.New(),
		in:   framing.New(api.Delimiter, o.maxFrame),
		log:  log.WithField("addr", addr),
	}
}

// Addr returns the numeric peer host captured when the Conn was created.
func (c *Conn) Addr() string { return c.addr }

// FD returns the descriptor, or -1 once disconnected.
func (c *Conn) FD() int { return c.fd }

// Failed reports whether a transport error has been latched.
func (c *Conn) Failed() bool { return c.failed }

// Err returns the latched failure cause, if any.
func (c *Conn) Err() error { return c.cause }

// Closed reports whether Disconnect has been called.
func (c *Conn) Closed() bool { return c.closed }

// Buffered returns the number of outbound bytes not yet written.
func (c *Conn) Buffered() int { return c.outLen }

// Queued returns a copy of the outbound bytes not yet written.
func (c *Conn) Queued() []byte {
	out := make([]byte, 0, c.outLen)
	for i := 0; i < c.out.Length(); i++ {
		seg := c.out.Get(i).([]byte)
		if i == 0 {
			seg = seg[c.headOff:]
		}
		out = append(out, seg...)
	}
	return out
}

// Fail latches err as the failure cause. The next cleanup pass of the
// owning server evicts the Conn. Has no effect if already failed.
func (c *Conn) Fail(err error) {
	if c.failed {
		return
	}
	c.failed = true
	c.cause = err
	c.log.WithError(err).Debug("connection failed")
}

// Send queues msg followed by the delimiter. No I/O happens until Flush.
func (c *Conn) Send(msg []byte) {
	if c.failed || c.closed {
		return
	}
	seg := framing.Encode(msg, api.Delimiter)
	c.out.Add(seg)
	c.outLen += len(seg)
}

// Flush makes one non-blocking attempt to write everything queued.
// Bytes the kernel accepted are dropped from the front of the queue; the
// rest stay for the next Flush. A write error latches the failure and
// leaves the queue as it was.
func (c *Conn) Flush() {
	if c.failed || c.closed || c.outLen == 0 {
		return
	}
	if c.out.Length() > maxIovecs {
		c.coalesce()
	}
	c.iov = c.iov[:0]
	for i := 0; i < c.out.Length(); i++ {
		seg := c.out.Get(i).([]byte)
		if i == 0 {
			seg = seg[c.headOff:]
		}
		c.iov = append(c.iov, seg)
	}
	n, err := sysSend(c.fd, c.iov)
	clear(c.iov)
	if err != nil {
		if isTemporary(err) {
			return
		}
		c.Fail(errors.Wrap(err, "send"))
		return
	}
	c.consume(n)
}

func (c *Conn) consume(n int) {
	for n > 0 && c.out.Length() > 0 {
		seg := c.out.Peek().([]byte)[c.headOff:]
		if n < len(seg) {
			c.headOff += n
			c.outLen -= n
			return
		}
		n -= len(seg)
		c.outLen -= len(seg)
		c.out.Remove()
		c.headOff = 0
	}
}

// coalesce merges every queued segment into one.
func (c *Conn) coalesce() {
	merged := c.Queued()
	c.out = queue.New()
	c.out.Add(merged)
	c.headOff = 0
}

// Receive returns the next complete inbound message with its delimiter
// stripped, or nil when none is available. It never waits: a message
// framed by an earlier read is returned without I/O, otherwise the socket
// is checked with a zero timeout and read at most once, up to capacity
// bytes. EOF or a read error latches the failure.
func (c *Conn) Receive(capacity int) []byte {
	if c.closed {
		return nil
	}
	if msg, ok := c.in.Next(); ok {
		return msg
	}
	if c.failed {
		return nil
	}
	r, _, err := reactor.WaitReadable(c.fd, 0)
	if err != nil {
		c.Fail(err)
		return nil
	}
	if !r.CanRead() {
		return nil
	}
	if capacity <= 0 {
		capacity = DefaultReadSize
	}
	scratch := pool.Scratch(capacity)
	buf := scratch.GetBuffer()
	defer scratch.PutBuffer(buf)

	n, err := sysRead(c.fd, buf)
	switch {
	case err != nil && isTemporary(err):
		return nil
	case err != nil:
		c.Fail(errors.Wrap(err, "recv"))
		return nil
	case n == 0:
		c.Fail(api.ErrConnectionClosed)
		return nil
	}
	if err := c.in.Write(buf[:n]); err != nil {
		// messages completed ahead of the oversized one are still delivered
		c.Fail(err)
	}
	msg, _ := c.in.Next()
	return msg
}

// Next returns a further message already framed by an earlier Receive,
// without touching the socket. Messages framed before a failure was
// latched remain available until Disconnect.
func (c *Conn) Next() []byte {
	if c.closed {
		return nil
	}
	msg, _ := c.in.Next()
	return msg
}

// Pending reports how many framed inbound messages are waiting for Next.
func (c *Conn) Pending() int { return c.in.Pending() }

// ReadRaw performs at most one zero-wait read into p, bypassing the framer.
// It returns 0 and a nil error when nothing is readable. Peer close and
// read errors latch the failure and are returned.
func (c *Conn) ReadRaw(p []byte) (int, error) {
	if c.failed || c.closed {
		return 0, c.failure()
	}
	r, _, err := reactor.WaitReadable(c.fd, 0)
	if err != nil {
		c.Fail(err)
		return 0, err
	}
	if !r.CanRead() || len(p) == 0 {
		return 0, nil
	}
	n, err := sysRead(c.fd, p)
	switch {
	case err != nil && isTemporary(err):
		return 0, nil
	case err != nil:
		c.Fail(errors.Wrap(err, "recv"))
		return 0, c.cause
	case n == 0:
		c.Fail(api.ErrConnectionClosed)
		return 0, c.cause
	}
	return n, nil
}

// WriteRaw makes one non-blocking write of p ahead of anything queued by
// Send. It returns how many bytes the kernel accepted, which may be zero.
func (c *Conn) WriteRaw(p []byte) (int, error) {
	if c.failed || c.closed {
		return 0, c.failure()
	}
	n, err := sysSend(c.fd, [][]byte{p})
	if err != nil {
		if isTemporary(err) {
			return 0, nil
		}
		c.Fail(errors.Wrap(err, "send"))
		return 0, c.cause
	}
	return n, nil
}

func (c *Conn) failure() error {
	if c.cause != nil {
		return c.cause
	}
	return api.ErrDisconnected
}

// Disconnect shuts down both directions, closes the descriptor and
// discards buffered data. A Conn that was not yet failed is latched as
// failed with api.ErrDisconnected, so a server still holding it evicts it
// on the next cleanup. A second call returns api.ErrAlreadyDisconnected and
// leaves the descriptor number alone.
func (c *Conn) Disconnect() error {
	if c.closed {
		return api.ErrAlreadyDisconnected
	}
	c.closed = true
	if !c.failed {
		c.failed = true
		c.cause = api.ErrDisconnected
	}
	_ = sysShutdown(c.fd)
	err := sysClose(c.fd)
	c.fd = -1
	c.out = queue.New()
	c.headOff = 0
	c.outLen = 0
	c.in.Reset()
	if err != nil {
		return errors.Wrap(err, "close")
	}
	return nil
}
