//go:build linux

package receiver

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket runs on the raw fd before bind: it enables SO_REUSEADDR and
// grows the kernel receive buffer. SO_RCVBUF is clamped to rmem_max by the
// kernel, so the requested size is verified with getsockopt (the kernel
// reports double the usable size) and SO_RCVBUFFORCE is tried when the
// clamp cut it short. Failure to grow the buffer is not fatal; SPEAD is
// lossy by design, a small buffer just loses more.
func (r *Receiver) controlSocket(_, _ string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if serr != nil {
			return
		}

		want := r.cfg.readBuffer
		if want <= 0 {
			return
		}

		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, want)
		got, gerr := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
		if gerr == nil && got >= want {
			return
		}

		if ferr := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, want); ferr != nil {
			r.log.Warn("could not grow socket receive buffer",
				"requested", want, "actual", got/2, "err", ferr)
		}
	})
	if err != nil {
		return err
	}

	return serr
}

// postListenSockopts is a no-op on Linux; controlSocket already configured
// the fd before bind.
func (r *Receiver) postListenSockopts(*net.UDPConn) {}
