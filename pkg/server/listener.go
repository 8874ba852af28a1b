// Package server implements the chat server: dual-family listeners,
// a connection acceptor, and the dispatcher goroutine that owns the
// roster and every outbound socket write.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/marmos91/parley/internal/logger"
)

// listenNetworks is the bind order. IPv4 comes first and stays first
// in the returned slice.
var listenNetworks = []string{"tcp4", "tcp6"}

// Listen binds the chat port for both address families. An empty bind
// address binds the wildcard. Families that fail to bind are skipped
// with a warning; Listen fails only when no listener could be bound.
func Listen(ctx context.Context, bindAddress string, port int) ([]net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrAndPort}
	addr := fmt.Sprintf("%s:%d", bindAddress, port)

	listeners := make([]net.Listener, 0, len(listenNetworks))
	for _, network := range listenNetworks {
		ln, err := lc.Listen(ctx, network, addr)
		if err != nil {
			logger.Warn("Failed to bind listener",
				logger.Network(network),
				logger.Port(port),
				logger.Err(err))
			continue
		}

		logger.Info("Chat server listening",
			logger.Network(network),
			logger.BindAddr(ln.Addr().String()))
		listeners = append(listeners, ln)
	}

	if len(listeners) == 0 {
		return nil, fmt.Errorf("no listener bound on port %d", port)
	}
	return listeners, nil
}
