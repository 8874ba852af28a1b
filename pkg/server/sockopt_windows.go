//go:build windows

package server

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// reuseAddrAndPort sets SO_REUSEADDR on the listening socket before
// bind. Windows has no SO_REUSEPORT; SO_REUSEADDR alone covers the
// fast-rebind case.
func reuseAddrAndPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); err != nil {
			sockErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
