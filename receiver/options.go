package receiver

import "log/slog"

type config struct {
	ringSlots  int
	readBuffer int
	logger     *slog.Logger
}

// Option configures a Receiver at construction time.
type Option func(*config)

// WithRingSlots sets the slot count of the packet ring. Values below one
// fall back to the default (128 slots).
func WithRingSlots(n int) Option {
	return func(c *config) {
		c.ringSlots = n
	}
}

// WithReadBuffer sets the OS receive-buffer size requested for the UDP
// socket, in bytes. Zero leaves the OS default untouched.
func WithReadBuffer(bytes int) Option {
	return func(c *config) {
		c.readBuffer = bytes
	}
}

// WithLogger sets the logger used for the receiver's warnings. A nil logger
// selects slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
