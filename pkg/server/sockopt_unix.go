//go:build !windows

package server

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrAndPort sets SO_REUSEADDR and SO_REUSEPORT on the listening
// socket before bind, so a restarted server rebinds without waiting
// out TIME_WAIT.
func reuseAddrAndPort(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			sockErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			sockErr = fmt.Errorf("set SO_REUSEPORT: %w", err)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
