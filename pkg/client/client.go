// Package client implements the chat session driver: it dials the
// server, announces a nick, and pumps inbound frames to a Handler
// while exposing the three outbound operations (say, whisper, rename).
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/marmos91/parley/internal/logger"
	"github.com/marmos91/parley/internal/protocol/chat"
)

// DefaultNick is used when no nick is configured; the server assigns
// the same name to sessions that never announce one.
const DefaultNick = "CLIENT"

// DialFn opens the transport connection. Tests inject net.Pipe here.
type DialFn func(ctx context.Context, addr string) (net.Conn, error)

// Handler receives inbound server frames decoded into UI-level events.
// Run calls it synchronously: the next frame is not read until the
// handler returns, so events arrive in wire order.
type Handler interface {
	// Chat is a room-wide line from another participant.
	Chat(from, text string)

	// Whisper is a private line addressed to this client.
	Whisper(from, text string)

	// Joined and Left track room presence. The roster echo after
	// connecting arrives as a Joined call per participant, this
	// client included.
	Joined(name string)
	Left(name string)

	// Renamed reports another participant's rename (and this
	// client's own, since the rename signal reaches everyone).
	Renamed(oldName, newName string)

	// WhisperSent confirms a delivered whisper; WhisperFailed reports
	// the target that could not be resolved.
	WhisperSent(target, text string)
	WhisperFailed(target string)

	// NickChanged confirms this client's rename; NickRejected carries
	// the payload the server refused.
	NickChanged(oldName, newName string)
	NickRejected(payload string)
}

// Config parameterizes Connect.
type Config struct {
	// Addr is the server address as host:port.
	Addr string

	// Nick is the initial display name; empty falls back to
	// DefaultNick. Clamped to the wire name limit.
	Nick string

	// Dial overrides the transport dial; nil uses TCP.
	Dial DialFn
}

// Client is a connected chat session. Say, Whisper, Nick and Close are
// safe for concurrent use with Run.
type Client struct {
	conn    net.Conn
	handler Handler

	// wmu serializes outbound frames so they never interleave.
	wmu sync.Mutex

	// nickMu guards nick: written by the read loop on RES_NIC_SUCCESS,
	// read by every outbound operation.
	nickMu sync.RWMutex
	nick   string

	closeOnce sync.Once
	closed    chan struct{}
}

// Connect dials the server and announces the nick with a join request.
// The returned client delivers nothing until Run is called.
func Connect(ctx context.Context, cfg Config, h Handler) (*Client, error) {
	dial := cfg.Dial
	if dial == nil {
		dial = func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		}
	}

	nick := chat.ClampName(cfg.Nick)
	if nick == "" {
		nick = DefaultNick
	}

	conn, err := dial(ctx, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}

	c := &Client{
		conn:    conn,
		handler: h,
		nick:    nick,
		closed:  make(chan struct{}),
	}

	if err := c.write(&chat.Message{
		Type: chat.Request(chat.OpConnect),
		Name: nick,
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("announce nick: %w", err)
	}

	logger.Debug("Connected to chat server",
		logger.RemoteAddr(cfg.Addr),
		logger.Nick(nick))

	return c, nil
}

// Run reads frames until the connection dies, delivering each to the
// handler before reading the next. It returns nil after Close and the
// read error otherwise (io.EOF when the server closed cleanly).
func (c *Client) Run() error {
	for {
		m, err := chat.ReadMessage(c.conn)
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		c.dispatch(m)
	}
}

// Close tears down the connection; a blocked Run returns nil.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// CurrentNick returns the last server-confirmed display name.
func (c *Client) CurrentNick() string {
	c.nickMu.RLock()
	defer c.nickMu.RUnlock()
	return c.nick
}

// Say broadcasts a chat line to the room.
func (c *Client) Say(text string) error {
	return c.request(chat.OpRegular, []byte(text))
}

// Whisper sends a private line to the named participant.
func (c *Client) Whisper(target, text string) error {
	return c.request(chat.OpPrivate, []byte(target+" "+text))
}

// Nick asks the server to rename this session. The local nick changes
// only when the success response arrives: committing early would make
// the next request carry a name the server does not know yet, and it
// would be dropped as spoofed.
func (c *Client) Nick(newName string) error {
	return c.request(chat.OpNickname, []byte(newName))
}

func (c *Client) request(op chat.Op, payload []byte) error {
	return c.write(&chat.Message{
		Type:    chat.Request(op),
		Name:    c.CurrentNick(),
		Payload: payload,
	})
}

func (c *Client) write(m *chat.Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return chat.WriteMessage(c.conn, m)
}

func (c *Client) setNick(name string) {
	c.nickMu.Lock()
	c.nick = name
	c.nickMu.Unlock()
}

// dispatch decodes one inbound frame into a handler call. Unknown
// frames, requests included, are dropped silently.
func (c *Client) dispatch(m *chat.Message) {
	body := string(m.Payload)

	switch m.Type {
	case chat.Signal(chat.OpRegular):
		c.handler.Chat(m.Name, body)
	case chat.Signal(chat.OpPrivate):
		c.handler.Whisper(m.Name, body)
	case chat.Signal(chat.OpConnect):
		c.handler.Joined(m.Name)
	case chat.Signal(chat.OpDisconnect):
		c.handler.Left(m.Name)
	case chat.Signal(chat.OpNickname):
		c.handler.Renamed(m.Name, body)
	case chat.Success(chat.OpPrivate):
		c.handler.WhisperSent(m.Name, body)
	case chat.Failure(chat.OpPrivate):
		c.handler.WhisperFailed(body)
	case chat.Success(chat.OpNickname):
		c.setNick(body)
		c.handler.NickChanged(m.Name, body)
	case chat.Failure(chat.OpNickname):
		c.handler.NickRejected(body)
	default:
		logger.Debug("Unknown frame dropped",
			logger.FrameType(m.Type.String()),
			logger.Nick(m.Name))
	}
}
