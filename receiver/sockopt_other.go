//go:build !linux

package receiver

import (
	"net"
	"syscall"
)

// controlSocket is a no-op outside Linux; the receive buffer is adjusted
// after bind via the portable net API instead.
func (r *Receiver) controlSocket(_, _ string, _ syscall.RawConn) error {
	return nil
}

// postListenSockopts applies the configured receive-buffer size through the
// portable setter, warning when the platform refuses.
func (r *Receiver) postListenSockopts(conn *net.UDPConn) {
	if r.cfg.readBuffer <= 0 {
		return
	}
	if err := conn.SetReadBuffer(r.cfg.readBuffer); err != nil {
		r.log.Warn("could not grow socket receive buffer",
			"requested", r.cfg.readBuffer, "err", err)
	}
}
