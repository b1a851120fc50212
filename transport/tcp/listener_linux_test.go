//go:build linux

package tcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/reactor"
)

func listen(t *testing.T) *Listener {
	t.Helper()
	l, err := Listen(0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestListen_EphemeralPort(t *testing.T) {
	l := listen(t)
	assert.Greater(t, l.Port(), 0)
	assert.GreaterOrEqual(t, l.FD(), 0)
}

func TestListen_InvalidPort(t *testing.T) {
	_, err := Listen(70000, 0)
	var le *api.ListenError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, api.ErrInvalidPort)
	assert.Equal(t, 70000, le.Port)
}

func TestListen_PortInUse(t *testing.T) {
	l := listen(t)
	_, err := Listen(l.Port(), 0)
	var le *api.ListenError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, api.StageBind, le.Stage)
	assert.ErrorIs(t, err, unix.EADDRINUSE)
}

func TestListener_AcceptNothingPending(t *testing.T) {
	l := listen(t)
	c, err := l.Accept()
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestDialAndAccept(t *testing.T) {
	l := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := Dial(ctx, "127.0.0.1", l.Port())
	require.NoError(t, err)
	defer out.Disconnect()
	assert.Equal(t, "127.0.0.1", out.Addr())

	r, _, err := reactor.WaitReadable(l.FD(), time.Second)
	require.NoError(t, err)
	require.True(t, r.CanRead())

	in, err := l.Accept()
	require.NoError(t, err)
	require.NotNil(t, in)
	defer in.Disconnect()
	assert.Equal(t, "127.0.0.1", in.Addr())

	out.Send([]byte("hello"))
	out.Flush()
	var got []byte
	for deadline := time.Now().Add(time.Second); got == nil && time.Now().Before(deadline); {
		got = in.Receive(1024)
	}
	assert.Equal(t, "hello", string(got))
}

func TestDial_Refused(t *testing.T) {
	l, err := Listen(0, 0)
	require.NoError(t, err)
	port := l.Port()
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Dial(ctx, "127.0.0.1", port)
	var de *api.DialError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, api.UnableToConnect, de.Code)
}

func TestDial_UnknownHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, "host.invalid", 80)
	var de *api.DialError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, api.UnableToGetHost, de.Code)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(unix.ECONNABORTED))
	assert.False(t, Transient(unix.EMFILE))
	assert.False(t, Transient(nil))
}
