//go:build linux

package tcp

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/ticknet/api"
)

// peerEnd is the raw side of a socketpair.
type peerEnd struct {
	fd     int
	closed bool
}

func (p *peerEnd) close(t *testing.T) {
	t.Helper()
	require.NoError(t, unix.Close(p.fd))
	p.closed = true
}

// pair returns a Conn wrapping one end of a socketpair and the raw peer.
func pair(t *testing.T, opts ...ConnOption) (*Conn, *peerEnd) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	c, err := NewConn(fds[0], "pair", opts...)
	require.NoError(t, err)
	p := &peerEnd{fd: fds[1]}
	t.Cleanup(func() {
		if !c.Closed() {
			c.Disconnect()
		}
		if !p.closed {
			unix.Close(p.fd)
		}
	})
	return c, p
}

func readN(t *testing.T, fd, n int) []byte {
	t.Helper()
	out := make([]byte, 0, n)
	buf := make([]byte, 4096)
	for len(out) < n {
		m, err := unix.Read(fd, buf)
		require.NoError(t, err)
		require.Greater(t, m, 0)
		out = append(out, buf[:m]...)
	}
	return out
}

func TestConn_SendOnlyBuffers(t *testing.T) {
	c, peer := pair(t)
	c.Send([]byte("one"))
	c.Send([]byte("two"))
	assert.Equal(t, "one\ntwo\n", string(c.Queued()))
	assert.Equal(t, 8, c.Buffered())

	require.NoError(t, unix.SetNonblock(peer.fd, true))
	_, err := unix.Read(peer.fd, make([]byte, 16))
	assert.Equal(t, unix.EAGAIN, err, "send must not touch the network")
}

func TestConn_FlushWritesInOrder(t *testing.T) {
	c, peer := pair(t)
	c.Send([]byte("one"))
	c.Send([]byte("two"))
	c.Flush()
	assert.False(t, c.Failed())
	assert.Equal(t, 0, c.Buffered())
	assert.Equal(t, "one\ntwo\n", string(readN(t, peer.fd, 8)))
}

func TestConn_FlushShortWriteKeepsRemainder(t *testing.T) {
	c, peer := pair(t)
	require.NoError(t, unix.SetsockoptInt(c.FD(), unix.SOL_SOCKET, unix.SO_SNDBUF, 4096))

	var want bytes.Buffer
	for i := 0; i < 64; i++ {
		msg := bytes.Repeat([]byte{byte('a' + i%26)}, 8191)
		c.Send(msg)
		want.Write(msg)
		want.WriteByte('\n')
	}
	total := c.Buffered()
	require.Equal(t, want.Len(), total)

	c.Flush()
	require.False(t, c.Failed())
	assert.Greater(t, c.Buffered(), 0, "kernel buffer should not take everything")
	assert.Less(t, c.Buffered(), total)

	got := make(chan []byte, 1)
	go func() {
		out := make([]byte, 0, total)
		buf := make([]byte, 65536)
		for len(out) < total {
			n, err := unix.Read(peer.fd, buf)
			if err != nil || n == 0 {
				break
			}
			out = append(out, buf[:n]...)
		}
		got <- out
	}()

	deadline := time.Now().Add(5 * time.Second)
	for c.Buffered() > 0 && time.Now().Before(deadline) {
		c.Flush()
		require.False(t, c.Failed())
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, c.Buffered())
	assert.True(t, bytes.Equal(want.Bytes(), <-got), "bytes must arrive in send order")
}

func TestConn_FlushCoalescesManySegments(t *testing.T) {
	c, peer := pair(t)
	var want strings.Builder
	for i := 0; i < 3*maxIovecs; i++ {
		c.Send([]byte{byte('0' + i%10)})
		want.WriteByte(byte('0' + i%10))
		want.WriteByte('\n')
	}
	c.Flush()
	require.False(t, c.Failed())
	assert.Equal(t, 0, c.Buffered())
	assert.Equal(t, want.String(), string(readN(t, peer.fd, want.Len())))
}

func TestConn_FlushErrorLatchesAndKeepsBuffer(t *testing.T) {
	c, peer := pair(t)
	peer.close(t)
	c.Send([]byte("lost"))
	c.Flush()
	assert.True(t, c.Failed())
	assert.ErrorIs(t, c.Err(), unix.EPIPE)
	assert.Equal(t, "lost\n", string(c.Queued()))
}

func TestConn_ReceiveNothingPending(t *testing.T) {
	c, _ := pair(t)
	assert.Nil(t, c.Receive(1024))
	assert.False(t, c.Failed())
}

func TestConn_ReceiveStripsDelimiter(t *testing.T) {
	c, peer := pair(t)
	_, err := unix.Write(peer.fd, []byte("ping\n"))
	require.NoError(t, err)
	assert.Equal(t, "ping", string(c.Receive(1024)))
	assert.Nil(t, c.Receive(1024))
}

func TestConn_ReceiveAccumulatesPartialReads(t *testing.T) {
	c, peer := pair(t)
	_, err := unix.Write(peer.fd, []byte("pi"))
	require.NoError(t, err)
	assert.Nil(t, c.Receive(1024))
	assert.False(t, c.Failed())

	_, err = unix.Write(peer.fd, []byte("ng\n"))
	require.NoError(t, err)
	assert.Equal(t, "ping", string(c.Receive(1024)))
}

func TestConn_ReceiveSmallCapacity(t *testing.T) {
	c, peer := pair(t)
	_, err := unix.Write(peer.fd, []byte("hello\n"))
	require.NoError(t, err)
	var got []byte
	for i := 0; i < 10 && got == nil; i++ {
		got = c.Receive(2)
	}
	assert.Equal(t, "hello", string(got))
}

func TestConn_ReceiveSeveralMessagesInOneRead(t *testing.T) {
	c, peer := pair(t)
	_, err := unix.Write(peer.fd, []byte("a\nb\nc\n"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(c.Receive(1024)))
	assert.Equal(t, 2, c.Pending())
	assert.Equal(t, "b", string(c.Next()))
	assert.Equal(t, "c", string(c.Receive(1024)), "framed messages are served before reading again")
	assert.Nil(t, c.Next())
}

func TestConn_PeerCloseLatchesFailure(t *testing.T) {
	c, peer := pair(t)
	peer.close(t)
	assert.Nil(t, c.Receive(1024))
	assert.True(t, c.Failed())
	assert.ErrorIs(t, c.Err(), api.ErrConnectionClosed)
}

func TestConn_FailedIsNoOp(t *testing.T) {
	c, peer := pair(t)
	c.Send([]byte("kept"))
	fd := c.FD()
	c.Fail(errors.New("boom"))
	c.Fail(errors.New("second"))
	assert.EqualError(t, c.Err(), "boom")

	_, err := unix.Write(peer.fd, []byte("ignored\n"))
	require.NoError(t, err)

	c.Send([]byte("more"))
	c.Flush()
	assert.Nil(t, c.Receive(1024))
	assert.Nil(t, c.Next())
	assert.Equal(t, "kept\n", string(c.Queued()))
	assert.Equal(t, fd, c.FD())

	require.NoError(t, unix.SetNonblock(peer.fd, true))
	_, err = unix.Read(peer.fd, make([]byte, 16))
	assert.Equal(t, unix.EAGAIN, err, "failed conn must not write")
}

func TestConn_FrameTooLong(t *testing.T) {
	c, peer := pair(t, WithMaxFrameSize(4))
	_, err := unix.Write(peer.fd, []byte("abcdef"))
	require.NoError(t, err)
	assert.Nil(t, c.Receive(1024))
	assert.True(t, c.Failed())
	assert.ErrorIs(t, c.Err(), api.ErrFrameTooLong)
}

func TestConn_FrameTooLongKeepsEarlierMessages(t *testing.T) {
	c, peer := pair(t, WithMaxFrameSize(8))
	_, err := unix.Write(peer.fd, []byte("ok1\nok2\n0123456789abcdef"))
	require.NoError(t, err)

	assert.Equal(t, "ok1", string(c.Receive(1024)))
	assert.True(t, c.Failed())
	assert.ErrorIs(t, c.Err(), api.ErrFrameTooLong)
	assert.Equal(t, "ok2", string(c.Next()))
	assert.Nil(t, c.Next())
	assert.Nil(t, c.Receive(1024))

	require.NoError(t, c.Disconnect())
	assert.Nil(t, c.Next())
}

func TestConn_DisconnectIsGuarded(t *testing.T) {
	c, peer := pair(t)
	c.Send([]byte("dropped"))
	require.NoError(t, c.Disconnect())
	assert.True(t, c.Closed())
	assert.True(t, c.Failed())
	assert.ErrorIs(t, c.Err(), api.ErrDisconnected)
	assert.Equal(t, -1, c.FD())
	assert.Equal(t, 0, c.Buffered())
	assert.ErrorIs(t, c.Disconnect(), api.ErrAlreadyDisconnected)

	n, err := unix.Read(peer.fd, make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "peer observes EOF")
}

func TestConn_RawReadWrite(t *testing.T) {
	c, peer := pair(t)
	buf := make([]byte, 16)

	n, err := c.ReadRaw(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = c.WriteRaw([]byte("abc\ndef"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "abc\ndef", string(readN(t, peer.fd, 7)))

	_, err = unix.Write(peer.fd, []byte("x\ny"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	n, err = c.ReadRaw(buf)
	require.NoError(t, err)
	assert.Equal(t, "x\ny", string(buf[:n]))
	assert.Equal(t, 0, c.Pending(), "raw reads bypass the framer")

	peer.close(t)
	time.Sleep(10 * time.Millisecond)
	_, err = c.ReadRaw(buf)
	assert.ErrorIs(t, err, api.ErrConnectionClosed)
	assert.True(t, c.Failed())
	_, err = c.WriteRaw([]byte("z"))
	assert.ErrorIs(t, err, api.ErrConnectionClosed)
}
