package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/parley/internal/protocol/chat"
	"github.com/marmos91/parley/pkg/config"
)

// startServer runs a server on an ephemeral loopback port and tears it
// down with the test.
func startServer(t *testing.T, maxClients int) *Server {
	t.Helper()

	srv := New(config.ServerConfig{
		BindAddress:     "127.0.0.1",
		Port:            0,
		MaxClients:      maxClients,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	return srv
}

// testClient drives one scripted connection.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func dialClient(t *testing.T, srv *Server) *testClient {
	t.Helper()

	conn, err := net.Dial("tcp", srv.GetListenerAddr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(typ chat.Type, name, payload string) {
	c.t.Helper()
	err := chat.WriteMessage(c.conn, &chat.Message{
		Type:    typ,
		Name:    name,
		Payload: []byte(payload),
	})
	require.NoError(c.t, err)
}

func (c *testClient) recv() *chat.Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	m, err := chat.ReadMessage(c.conn)
	require.NoError(c.t, err)
	return m
}

// expectSilence asserts no frame arrives within the window.
func (c *testClient) expectSilence(d time.Duration) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))
	_, err := chat.ReadMessage(c.conn)
	require.Error(c.t, err)

	var ne net.Error
	require.ErrorAs(c.t, err, &ne)
	require.True(c.t, ne.Timeout(), "expected silence, got %v", err)
}

// join consumes the greeting, announces the nick, and consumes the
// roster echo, asserting it lists exactly the given names in order.
func (c *testClient) join(nick string, roster ...string) {
	c.t.Helper()

	greeting := c.recv()
	require.Equal(c.t, chat.Signal(chat.OpRegular), greeting.Type)
	require.Equal(c.t, ServerName, greeting.Name)

	c.send(chat.Request(chat.OpConnect), nick, "")
	for _, name := range roster {
		c.expectConnect(name)
	}
}

func (c *testClient) expectConnect(name string) {
	c.t.Helper()
	m := c.recv()
	require.Equal(c.t, chat.Signal(chat.OpConnect), m.Type)
	require.Equal(c.t, name, m.Name)
}

func (c *testClient) expectDisconnect(name string) {
	c.t.Helper()
	m := c.recv()
	require.Equal(c.t, chat.Signal(chat.OpDisconnect), m.Type)
	require.Equal(c.t, name, m.Name)
}

func TestGreeting(t *testing.T) {
	srv := startServer(t, 4)
	c := dialClient(t, srv)

	m := c.recv()
	assert.Equal(t, chat.Signal(chat.OpRegular), m.Type)
	assert.Equal(t, ServerName, m.Name)
	assert.Equal(t, config.DefaultGreeting, string(m.Payload))
}

func TestSingleChat(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")

	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Request(chat.OpRegular), "alice", "world")

	m := bob.recv()
	assert.Equal(t, chat.Signal(chat.OpRegular), m.Type)
	assert.Equal(t, "alice", m.Name)
	assert.Equal(t, "world", string(m.Payload))

	// The sender never hears its own line.
	alice.expectSilence(200 * time.Millisecond)
}

func TestNicknameChange(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")

	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Request(chat.OpNickname), "alice", "alice2")

	res := alice.recv()
	assert.Equal(t, chat.Success(chat.OpNickname), res.Type)
	assert.Equal(t, "alice", res.Name)
	assert.Equal(t, "alice2", string(res.Payload))

	// The rename signal reaches everyone, the requester included,
	// carrying the old name with the new one in the body.
	for _, c := range []*testClient{alice, bob} {
		sig := c.recv()
		assert.Equal(t, chat.Signal(chat.OpNickname), sig.Type)
		assert.Equal(t, "alice", sig.Name)
		assert.Equal(t, "alice2", string(sig.Payload))
	}

	// Subsequent lines arrive under the new name.
	alice.send(chat.Request(chat.OpRegular), "alice2", "hi")
	m := bob.recv()
	assert.Equal(t, "alice2", m.Name)
	assert.Equal(t, "hi", string(m.Payload))
}

func TestNicknameRejected(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"two tokens", "two words", "two words"},
		{"empty", "", ""},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startServer(t, 2)
			alice := dialClient(t, srv)
			alice.join("alice", "alice")

			alice.send(chat.Request(chat.OpNickname), "alice", tt.payload)

			res := alice.recv()
			assert.Equal(t, chat.Failure(chat.OpNickname), res.Type)
			assert.Equal(t, ServerName, res.Name)
			assert.Equal(t, tt.want, string(res.Payload))

			// The recorded name is unchanged.
			alice.send(chat.Request(chat.OpNickname), "alice", "alice2")
			ok := alice.recv()
			assert.Equal(t, chat.Success(chat.OpNickname), ok.Type)
			assert.Equal(t, "alice", ok.Name)
		})
	}
}

func TestPrivateMessage(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Request(chat.OpPrivate), "alice", "bob hi there")

	whisper := bob.recv()
	assert.Equal(t, chat.Signal(chat.OpPrivate), whisper.Type)
	assert.Equal(t, "alice", whisper.Name)
	assert.Equal(t, "hi there", string(whisper.Payload))

	echo := alice.recv()
	assert.Equal(t, chat.Success(chat.OpPrivate), echo.Type)
	assert.Equal(t, "bob", echo.Name)
	assert.Equal(t, "hi there", string(echo.Payload))
}

func TestPrivateToAbsentTarget(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Request(chat.OpPrivate), "alice", "charlie ping")

	res := alice.recv()
	assert.Equal(t, chat.Failure(chat.OpPrivate), res.Type)
	assert.Equal(t, ServerName, res.Name)
	assert.Equal(t, "charlie", string(res.Payload))

	bob.expectSilence(200 * time.Millisecond)
}

func TestPrivateNeverTargetsSender(t *testing.T) {
	srv := startServer(t, 4)

	// Two sessions named "dup": a whisper from the first resolves to
	// the second, never back to the sender.
	first := dialClient(t, srv)
	first.join("dup", "dup")
	second := dialClient(t, srv)
	second.join("dup", "dup", "dup")
	first.expectConnect("dup")

	first.send(chat.Request(chat.OpPrivate), "dup", "dup hello")

	whisper := second.recv()
	assert.Equal(t, chat.Signal(chat.OpPrivate), whisper.Type)
	assert.Equal(t, "hello", string(whisper.Payload))

	echo := first.recv()
	assert.Equal(t, chat.Success(chat.OpPrivate), echo.Type)
}

func TestDisconnectFanout(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")
	carol := dialClient(t, srv)
	carol.join("carol", "alice", "bob", "carol")
	alice.expectConnect("carol")
	bob.expectConnect("carol")

	// bob crashes.
	require.NoError(t, bob.conn.Close())

	alice.expectDisconnect("bob")
	carol.expectDisconnect("bob")

	// The room keeps working without him.
	alice.send(chat.Request(chat.OpRegular), "alice", "hi")
	m := carol.recv()
	assert.Equal(t, chat.Signal(chat.OpRegular), m.Type)
	assert.Equal(t, "alice", m.Name)
	assert.Equal(t, "hi", string(m.Payload))
}

func TestSpoofedNameDropped(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	// A frame whose name is not the recorded name is dropped.
	alice.send(chat.Request(chat.OpRegular), "bob", "spoofed")
	bob.expectSilence(200 * time.Millisecond)
}

func TestNonRequestDropped(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Signal(chat.OpRegular), "alice", "not a request")
	bob.expectSilence(200 * time.Millisecond)
}

func TestSanitizedBroadcast(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	alice.send(chat.Request(chat.OpRegular), "alice", "  hello \t  world  !")
	m := bob.recv()
	assert.Equal(t, "hello world !", string(m.Payload))

	// A line that sanitizes to nothing is not rebroadcast.
	alice.send(chat.Request(chat.OpRegular), "alice", " \t \x01 ")
	bob.expectSilence(200 * time.Millisecond)
}

func TestOversizedLengthClosesConnection(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	// Hand-craft a prefix announcing an oversized payload. The framer
	// cannot resynchronize, so the server must drop the connection.
	prefix := make([]byte, chat.PrefixSize)
	binary.BigEndian.PutUint32(prefix[0:], uint32(chat.Request(chat.OpRegular)))
	copy(prefix[4:], "bob")
	binary.BigEndian.PutUint32(prefix[36:], 4096)
	_, err := bob.conn.Write(prefix)
	require.NoError(t, err)

	require.NoError(t, bob.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, err = chat.ReadMessage(bob.conn)
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, io.EOF)

	alice.expectDisconnect("bob")
}

func TestCapacityRefused(t *testing.T) {
	srv := startServer(t, 1)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")

	// The second connection is closed before any greeting.
	refused := dialClient(t, srv)
	require.NoError(t, refused.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err := chat.ReadMessage(refused.conn)
	assert.ErrorIs(t, err, io.EOF)

	// The slot frees up once alice leaves.
	require.NoError(t, alice.conn.Close())

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", srv.GetListenerAddr())
		if err != nil {
			return false
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, err = chat.ReadMessage(conn)
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)
}

func TestRejoinReseedsRoster(t *testing.T) {
	srv := startServer(t, 4)

	alice := dialClient(t, srv)
	alice.join("alice", "alice")
	bob := dialClient(t, srv)
	bob.join("bob", "alice", "bob")
	alice.expectConnect("bob")

	// A second REQ_CON re-adopts the name and re-sends the echo.
	bob.send(chat.Request(chat.OpConnect), "bobby", "")
	alice.expectConnect("bobby")
	bob.expectConnect("alice")
	bob.expectConnect("bobby")
}

func TestGracefulShutdown(t *testing.T) {
	srv := New(config.ServerConfig{
		BindAddress:     "127.0.0.1",
		Port:            0,
		MaxClients:      4,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 2 * time.Second,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	conn, err := net.Dial("tcp", srv.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = chat.ReadMessage(conn) // greeting
	require.NoError(t, err)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	// The session socket is gone.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = chat.ReadMessage(conn)
	assert.Error(t, err)
}

func TestStopIsIdempotent(t *testing.T) {
	srv := New(config.ServerConfig{
		BindAddress:     "127.0.0.1",
		Port:            0,
		MaxClients:      4,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 2 * time.Second,
	}, nil)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background())
	}()
	_ = srv.GetListenerAddr()

	require.NoError(t, srv.Stop(nil))
	require.NoError(t, srv.Stop(nil))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
