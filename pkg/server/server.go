package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/marmos91/parley/internal/logger"
	"github.com/marmos91/parley/internal/protocol/chat"
	"github.com/marmos91/parley/internal/telemetry"
	"github.com/marmos91/parley/pkg/config"
	"github.com/marmos91/parley/pkg/metrics"
)

// eventQueueSize bounds the dispatcher event channel. A full channel
// back-pressures readers and acceptors; events are never dropped.
const eventQueueSize = 512

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventFrame
)

// event is one unit of dispatcher work. Acceptors produce joins,
// reader goroutines produce frames and leaves.
type event struct {
	kind eventKind
	conn net.Conn      // join
	sess *session      // leave, frame
	msg  *chat.Message // frame
	err  error         // leave cause
}

// Server is the chat server. A single dispatcher goroutine owns the
// roster and performs every socket write; one reader goroutine per
// session feeds it through the event channel.
//
// Thread safety: all exported methods are safe for concurrent use.
// Stop is idempotent.
type Server struct {
	cfg     config.ServerConfig
	metrics metrics.ChatMetrics

	events chan event

	// roster is dispatcher-owned: ordered by join, compacted in place
	// on removal. No lock; only the dispatcher touches it.
	roster []*session

	listeners  []net.Listener
	listenerMu sync.RWMutex

	readers sync.WaitGroup

	shutdownOnce sync.Once

	// Shutdown is closed when shutdown begins. Acceptors and readers
	// select on it so they never block on a gone dispatcher.
	Shutdown chan struct{}

	// ListenerReady is closed once the listeners are bound. Used by
	// tests to synchronize with server startup.
	ListenerReady chan struct{}
}

// New creates a chat server. m may be nil to disable metrics. Zero
// config fields fall back to the documented defaults.
func New(cfg config.ServerConfig, m metrics.ChatMetrics) *Server {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 256
	}
	if cfg.Greeting == "" {
		cfg.Greeting = config.DefaultGreeting
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return &Server{
		cfg:           cfg,
		metrics:       m,
		events:        make(chan event, eventQueueSize),
		roster:        make([]*session, 0, cfg.MaxClients),
		Shutdown:      make(chan struct{}),
		ListenerReady: make(chan struct{}),
	}
}

// Serve binds the listeners and runs the accept loops and the
// dispatcher until ctx is cancelled or Stop is called. It returns nil
// on graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	listeners, err := Listen(ctx, s.cfg.BindAddress, s.cfg.Port)
	if err != nil {
		return fmt.Errorf("start chat server: %w", err)
	}

	s.listenerMu.Lock()
	s.listeners = listeners
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	var acceptors sync.WaitGroup
	for _, ln := range listeners {
		acceptors.Add(1)
		go func(ln net.Listener) {
			defer acceptors.Done()
			s.acceptLoop(ln)
		}(ln)
	}

	s.dispatch(ctx)

	acceptors.Wait()
	return s.waitReaders(s.cfg.ShutdownTimeout)
}

// Stop initiates graceful shutdown and waits for reader goroutines to
// finish. Safe to call multiple times and concurrently with Serve.
// A nil ctx waits up to the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.waitReaders(s.cfg.ShutdownTimeout)
	}

	done := make(chan struct{})
	go func() {
		s.readers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetListenerAddr returns the address of the first bound listener
// (IPv4 when both families bound). Blocks until the listeners are
// ready, making it safe for tests.
func (s *Server) GetListenerAddr() string {
	<-s.ListenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if len(s.listeners) == 0 {
		return ""
	}
	return s.listeners[0].Addr().String()
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Chat server shutdown initiated")
		close(s.Shutdown)

		s.listenerMu.RLock()
		for _, ln := range s.listeners {
			if err := ln.Close(); err != nil {
				logger.Debug("Error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.RUnlock()
	})
}

func (s *Server) waitReaders(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.readers.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Chat server shutdown complete")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("chat server shutdown timeout after %s", timeout)
	}
}

// acceptLoop accepts connections on one listener and forwards them to
// the dispatcher as join events. Capacity enforcement belongs to the
// dispatcher, the roster owner.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.Shutdown:
				return
			default:
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Debug("Temporary accept error", logger.Err(err))
				continue
			}

			logger.Warn("Accept failed, stopping server",
				logger.BindAddr(ln.Addr().String()),
				logger.Err(err))
			s.initiateShutdown()
			return
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		select {
		case s.events <- event{kind: eventJoin, conn: conn}:
		case <-s.Shutdown:
			_ = conn.Close()
			return
		}
	}
}

// readLoop blocks on the session socket and forwards frames to the
// dispatcher. Any read error, a clean close included, produces exactly
// one leave event; an oversized payload length poisons the stream, so
// it ends the session the same way.
func (s *Server) readLoop(sess *session) {
	defer s.readers.Done()

	for {
		m, err := chat.ReadMessage(sess.conn)
		if err != nil {
			if errors.Is(err, chat.ErrPayloadTooLarge) {
				logger.Warn("Protocol violation, closing connection",
					logger.SessionID(sess.id),
					logger.Err(err))
			}
			select {
			case s.events <- event{kind: eventLeave, sess: sess, err: err}:
			case <-s.Shutdown:
			}
			return
		}

		select {
		case s.events <- event{kind: eventFrame, sess: sess, msg: m}:
		case <-s.Shutdown:
			return
		}
	}
}

// dispatch is the heart of the server: a single goroutine servicing
// events in total order. Each event is handled completely before the
// next one is read.
func (s *Server) dispatch(ctx context.Context) {
	for {
		select {
		case ev := <-s.events:
			switch ev.kind {
			case eventJoin:
				s.handleJoin(ctx, ev.conn)
			case eventLeave:
				s.handleLeave(ctx, ev.sess, ev.err)
			case eventFrame:
				s.handleFrame(ctx, ev.sess, ev.msg)
			}
		case <-s.Shutdown:
			s.closeAll()
			return
		}
	}
}

func (s *Server) handleJoin(ctx context.Context, conn net.Conn) {
	if len(s.roster) >= s.cfg.MaxClients {
		if s.metrics != nil {
			s.metrics.RecordConnectionRefused()
		}
		logger.Warn("Connection refused",
			logger.RemoteAddr(conn.RemoteAddr().String()),
			logger.MaxClients(s.cfg.MaxClients),
			logger.Err(chat.ErrServerFull))
		_ = conn.Close()
		return
	}

	sess := newSession(conn)
	s.roster = append(s.roster, sess)

	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveSessions(len(s.roster))
	}

	s.readers.Add(1)
	go s.readLoop(sess)

	logger.InfoCtx(logger.WithContext(ctx, sess.logCtx), "Session joined",
		logger.RemoteAddr(conn.RemoteAddr().String()),
		logger.Sessions(len(s.roster)))

	s.send(sess, &chat.Message{
		Type:    chat.Signal(chat.OpRegular),
		Name:    ServerName,
		Payload: []byte(s.cfg.Greeting),
	})
}

func (s *Server) handleLeave(ctx context.Context, sess *session, cause error) {
	if !s.remove(sess) {
		// Already reaped (shutdown raced the reader).
		return
	}
	_ = sess.conn.Close()

	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveSessions(len(s.roster))
	}

	lctx := logger.WithContext(ctx, sess.logCtx)
	if cause != nil && !errors.Is(cause, io.EOF) {
		logger.InfoCtx(lctx, "Session closed",
			logger.Sessions(len(s.roster)),
			logger.Err(cause))
	} else {
		logger.InfoCtx(lctx, "Session left",
			logger.Sessions(len(s.roster)))
	}

	s.broadcast(ctx, &chat.Message{
		Type: chat.Signal(chat.OpDisconnect),
		Name: sess.name,
	})
}

func (s *Server) handleFrame(ctx context.Context, sess *session, m *chat.Message) {
	op := m.Type.Op()
	if s.metrics != nil {
		s.metrics.RecordFrameReceived(op.String(), len(m.Payload))
	}

	start := time.Now()
	ctx = logger.WithContext(ctx, sess.logCtx.WithOp(op.String()))
	ctx, span := telemetry.StartDispatchSpan(ctx, op.String(),
		telemetry.FrameType(m.Type.String()),
		telemetry.SessionIDAttr(sess.id),
		telemetry.Nick(sess.name),
		telemetry.PayloadSize(len(m.Payload)))
	defer span.End()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordDispatch(op.String(), time.Since(start))
		}
	}()

	if m.Type.Kind() != chat.KindRequest {
		s.drop(ctx, m, "not_request")
		return
	}

	// The name field is trusted only by CON; every other request must
	// carry the recorded name or be dropped.
	if op != chat.OpConnect && m.Name != sess.name {
		s.drop(ctx, m, "name_mismatch")
		return
	}

	switch op {
	case chat.OpRegular:
		s.handleRegular(ctx, sess, m)
	case chat.OpPrivate:
		s.handlePrivate(ctx, sess, m)
	case chat.OpConnect:
		s.handleConnect(ctx, sess, m)
	case chat.OpNickname:
		s.handleNickname(ctx, sess, m)
	default:
		s.drop(ctx, m, "unknown_op")
	}
}

func (s *Server) drop(ctx context.Context, m *chat.Message, reason string) {
	if s.metrics != nil {
		s.metrics.RecordFrameDropped(m.Type.Op().String(), reason)
	}
	logger.DebugCtx(ctx, "Frame dropped",
		logger.FrameType(m.Type.String()),
		logger.Nick(m.Name),
		logger.Reason(reason))
}

// handleRegular relays a chat line to every other session, stamped
// with the sender's recorded name.
func (s *Server) handleRegular(ctx context.Context, sess *session, m *chat.Message) {
	body := chat.Sanitize(m.Payload)
	if len(body) == 0 {
		s.drop(ctx, m, "empty_after_sanitize")
		return
	}

	s.broadcast(ctx, &chat.Message{
		Type:    chat.Signal(chat.OpRegular),
		Name:    sess.name,
		Payload: body,
	}, sess)
}

// handlePrivate parses "<target> <text>" and whispers to the first
// roster match, skipping the sender. Failures answer the sender with
// the attempted target.
func (s *Server) handlePrivate(ctx context.Context, sess *session, m *chat.Message) {
	body := chat.Sanitize(m.Payload)
	if len(body) == 0 {
		s.drop(ctx, m, "empty_after_sanitize")
		return
	}

	args, offset := chat.SplitArgs(body, 1)
	if offset < 0 {
		s.whisperFailed(ctx, sess, string(body))
		return
	}
	target := args[0]

	text := body[offset:]
	for len(text) > 0 && text[0] == ' ' {
		text = text[1:]
	}
	if len(text) == 0 {
		s.whisperFailed(ctx, sess, target)
		return
	}

	recipient := s.lookup(target, sess)
	if recipient == nil {
		s.whisperFailed(ctx, sess, target)
		return
	}

	s.send(recipient, &chat.Message{
		Type:    chat.Signal(chat.OpPrivate),
		Name:    sess.name,
		Payload: text,
	})
	s.send(sess, &chat.Message{
		Type:    chat.Success(chat.OpPrivate),
		Name:    recipient.name,
		Payload: text,
	})

	logger.DebugCtx(ctx, "Whisper delivered", logger.Target(recipient.name))
}

func (s *Server) whisperFailed(ctx context.Context, sess *session, target string) {
	logger.DebugCtx(ctx, "Whisper target not found", logger.Target(target))
	s.send(sess, &chat.Message{
		Type:    chat.Failure(chat.OpPrivate),
		Name:    ServerName,
		Payload: []byte(target),
	})
}

// handleConnect adopts the frame's name field, announces the joiner to
// the room, then echoes the current roster back so the joining UI can
// seed itself. Re-joins from a named session run the same path.
func (s *Server) handleConnect(ctx context.Context, sess *session, m *chat.Message) {
	name := chat.ClampName(m.Name)
	sess.name = name
	sess.logCtx.Nick = name

	logger.InfoCtx(ctx, "Session named", logger.Nick(name))

	s.broadcast(ctx, &chat.Message{
		Type: chat.Signal(chat.OpConnect),
		Name: name,
	}, sess)

	// One SIG_CON per roster entry in join order, the joiner included.
	for _, peer := range s.roster {
		if !s.send(sess, &chat.Message{
			Type: chat.Signal(chat.OpConnect),
			Name: peer.name,
		}) {
			break
		}
	}
}

// handleNickname renames the session. The success response and the
// room-wide signal both carry the old name with the new name in the
// body, so every recipient observes the mapping in one frame; the
// recorded name changes only after both are out.
func (s *Server) handleNickname(ctx context.Context, sess *session, m *chat.Message) {
	body := chat.Sanitize(m.Payload)

	args, offset := chat.SplitArgs(body, 1)
	if offset < 0 || offset != len(body) || len(args[0]) >= chat.MaxNameSize {
		logger.DebugCtx(ctx, "Rename rejected", logger.PayloadSize(len(body)))
		s.send(sess, &chat.Message{
			Type:    chat.Failure(chat.OpNickname),
			Name:    ServerName,
			Payload: body,
		})
		return
	}

	oldName := sess.name
	newName := args[0]

	s.send(sess, &chat.Message{
		Type:    chat.Success(chat.OpNickname),
		Name:    oldName,
		Payload: []byte(newName),
	})
	s.broadcast(ctx, &chat.Message{
		Type:    chat.Signal(chat.OpNickname),
		Name:    oldName,
		Payload: []byte(newName),
	})

	sess.name = newName
	sess.logCtx.Nick = newName

	logger.InfoCtx(ctx, "Session renamed",
		logger.OldNick(oldName),
		logger.NewNick(newName))
}

// broadcast sends m to every roster entry not in exclude, in join
// order. Per-recipient failures are counted and ignored; the failed
// recipient's socket is closed so its own reader reports the leave.
func (s *Server) broadcast(ctx context.Context, m *chat.Message, exclude ...*session) {
	_, span := telemetry.StartBroadcastSpan(ctx, m.Type.String(),
		telemetry.Nick(m.Name))
	defer span.End()

	recipients := 0
outer:
	for _, sess := range s.roster {
		for _, ex := range exclude {
			if sess == ex {
				continue outer
			}
		}
		if s.send(sess, m) {
			recipients++
		}
	}

	span.SetAttributes(telemetry.Recipients(recipients))
	if s.metrics != nil {
		s.metrics.RecordBroadcast(m.Type.String(), recipients)
	}
}

// send writes one frame under the per-frame write deadline. On failure
// the recipient's socket is closed; its reader reports the leave.
func (s *Server) send(sess *session, m *chat.Message) bool {
	if err := sess.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		_ = sess.conn.Close()
		return false
	}

	if err := chat.WriteMessage(sess.conn, m); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSendFailure()
		}
		logger.Debug("Frame send failed",
			logger.SessionID(sess.id),
			logger.FrameType(m.Type.String()),
			logger.Err(err))
		_ = sess.conn.Close()
		return false
	}
	return true
}

// lookup returns the first roster entry named name, skipping skip.
// Duplicate names are allowed; join order breaks ties.
func (s *Server) lookup(name string, skip *session) *session {
	for _, sess := range s.roster {
		if sess == skip {
			continue
		}
		if sess.name == name {
			return sess
		}
	}
	return nil
}

// remove compacts the roster in place, preserving relative order.
func (s *Server) remove(victim *session) bool {
	for i, sess := range s.roster {
		if sess == victim {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			return true
		}
	}
	return false
}

// closeAll tears down every session at shutdown. Readers unblock on
// the closed sockets and exit through the Shutdown select.
func (s *Server) closeAll() {
	for _, sess := range s.roster {
		_ = sess.conn.Close()
	}
	s.roster = s.roster[:0]
	if s.metrics != nil {
		s.metrics.SetActiveSessions(0)
	}
}
