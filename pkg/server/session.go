package server

import (
	"net"

	"github.com/google/uuid"

	"github.com/marmos91/parley/internal/logger"
)

const (
	// InitialName is the name a session carries until its first
	// REQ_CON adopts one.
	InitialName = "CLIENT"

	// ServerName is the name stamped on frames the server originates
	// (greeting, whisper failures, rename failures).
	ServerName = "SERVER"
)

// session is one connected client as tracked by the dispatcher.
//
// All fields except conn belong to the dispatcher goroutine: the
// reader goroutine only reads from conn and never touches name or
// logCtx.
type session struct {
	id     string
	conn   net.Conn
	name   string
	logCtx *logger.LogContext
}

func newSession(conn net.Conn) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		conn:   conn,
		name:   InitialName,
		logCtx: logger.NewLogContext(id, remoteIP(conn)),
	}
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
