package server

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeAllListeners(t *testing.T, listeners []net.Listener) {
	t.Helper()
	for _, ln := range listeners {
		assert.NoError(t, ln.Close())
	}
}

func TestListenLoopback(t *testing.T) {
	listeners, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	defer closeAllListeners(t, listeners)

	// An IPv4 literal binds the IPv4 family only; the IPv6 bind fails
	// and is skipped.
	require.Len(t, listeners, 1)
	assert.True(t, strings.HasPrefix(listeners[0].Addr().String(), "127.0.0.1:"))
}

func TestListenWildcard(t *testing.T) {
	listeners, err := Listen(context.Background(), "", 0)
	require.NoError(t, err)
	defer closeAllListeners(t, listeners)

	require.NotEmpty(t, listeners)

	addr, ok := listeners[0].Addr().(*net.TCPAddr)
	require.True(t, ok)

	// IPv4 stays first when both families bound.
	if len(listeners) == 2 {
		assert.NotNil(t, addr.IP.To4(), "IPv4 listener must come first, got %s", addr)
	}
}

func TestListenRebindsImmediately(t *testing.T) {
	first, err := Listen(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)

	port := first[0].Addr().(*net.TCPAddr).Port

	// Hold a connection open so the port would normally linger in
	// TIME_WAIT territory, then rebind.
	conn, err := net.Dial("tcp", first[0].Addr().String())
	require.NoError(t, err)
	_ = conn.Close()
	closeAllListeners(t, first)

	second, err := Listen(context.Background(), "127.0.0.1", port)
	require.NoError(t, err)
	closeAllListeners(t, second)
}
