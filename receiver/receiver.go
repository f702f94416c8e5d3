// Package receiver implements the buffered UDP ingest pipeline: a producer
// goroutine reads datagrams into a fixed ring of packet slots, a consumer
// goroutine drains the ring, decodes each packet's header and item table and
// hands it to the user callback.
//
// Both stages poll with short bounds (the producer's read deadline, the
// consumer's sleep), so Stop never waits on arriving traffic. Per-packet
// decode failures are expected on a lossy UDP stream and are swallowed;
// a callback error, a stream-control terminator or a fatal socket error
// terminates the session.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/internal/pool"
	"github.com/ska-sa/spead/internal/ring"
	"github.com/ska-sa/spead/packet"
)

const (
	// readTimeout bounds the producer's blocking socket read so it can
	// notice a cleared run flag.
	readTimeout = 50 * time.Millisecond

	// pollInterval is the consumer's sleep when the ring is empty.
	pollInterval = 10 * time.Millisecond
)

// Callback receives each decoded packet from the consumer goroutine.
//
// The callback takes ownership of the packet: when it is done with it,
// possibly much later after heap assembly, it should hand the packet to
// ReleasePacket so the buffer returns to the receive pool. A non-nil error
// terminates the pipeline.
type Callback func(pkt *packet.Packet) error

// Receiver owns a UDP socket and the slot ring between its two worker
// goroutines. Construct with New, then Start/Stop. A Receiver can be
// started again after a Stop.
type Receiver struct {
	cfg  config
	port int
	log  *slog.Logger

	mu      sync.Mutex // guards started and conn
	started bool
	conn    *net.UDPConn

	cb atomic.Pointer[Callback]

	running atomic.Bool
	rng     *ring.Ring
	wg      sync.WaitGroup
}

// New creates a receiver for the given UDP port. Use packet.DefaultPort for
// the registered SPEAD port.
func New(port int, opts ...Option) *Receiver {
	cfg := config{ringSlots: ring.DefaultSlots}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}

	return &Receiver{cfg: cfg, port: port, log: log}
}

// SetCallback installs the packet callback. It may be called before Start or
// between packets; the consumer picks up the newest value for each packet.
// With no callback installed, packets are decoded and dropped.
func (r *Receiver) SetCallback(cb Callback) {
	if cb == nil {
		r.cb.Store(nil)
		return
	}
	r.cb.Store(&cb)
}

// Running reports whether the pipeline workers are live. It turns false on
// Stop but also when the stream terminates itself (stream-control packet,
// callback error, fatal socket error).
func (r *Receiver) Running() bool { return r.running.Load() }

// Start binds the socket and launches the producer and consumer.
//
// Returns:
//   - error: errs.ErrAlreadyRunning unless the receiver is idle,
//     errs.ErrSocket if the bind or socket options fail
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errs.ErrAlreadyRunning
	}

	lc := net.ListenConfig{Control: r.controlSocket}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", r.port))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSocket, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return fmt.Errorf("%w: unexpected conn type %T", errs.ErrSocket, pc)
	}
	r.postListenSockopts(conn)

	r.conn = conn
	r.rng = ring.New(r.cfg.ringSlots)
	r.started = true
	r.running.Store(true)

	r.wg.Add(2)
	go r.produce()
	go r.consume()

	return nil
}

// Stop halts both workers, joins them and releases the socket. It returns
// once the workers have exited, which their polling bounds keep under
// roughly a hundred milliseconds. Stop never waits on an outstanding
// callback beyond the consumer's current iteration.
//
// Returns:
//   - error: errs.ErrNotRunning if the receiver was not started
func (r *Receiver) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return errs.ErrNotRunning
	}

	r.running.Store(false)
	r.wg.Wait()
	r.conn.Close()
	r.conn = nil
	r.rng = nil
	r.started = false

	return nil
}

// LocalAddr returns the bound socket address, or nil while the receiver is
// idle. Useful when the receiver was started on port 0.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}

	return r.conn.LocalAddr()
}

// ReleasePacket returns a callback-owned packet to the receive pool. Safe
// to call from any goroutine.
func ReleasePacket(p *packet.Packet) {
	pool.PutPacket(p)
}

func (r *Receiver) callback() Callback {
	if p := r.cb.Load(); p != nil {
		return *p
	}

	return nil
}

// produce moves datagrams from the socket into ring slots.
func (r *Receiver) produce() {
	defer r.wg.Done()

	for r.running.Load() {
		if !r.rng.ClaimWrite(readTimeout) {
			continue
		}

		pkt := pool.GetPacket()
		_ = r.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := r.conn.ReadFromUDP(pkt.Buffer())
		if err != nil {
			pool.PutPacket(pkt)
			r.rng.AbortWrite()

			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}

			r.log.Error("socket read failed, terminating", "err", err)
			r.running.Store(false)

			return
		}

		pkt.SetWireLen(n)
		r.rng.PublishWrite(pkt)
	}
}

// consume drains ring slots, decodes and dispatches to the callback.
func (r *Receiver) consume() {
	defer r.wg.Done()

	for r.running.Load() {
		pkt, ok := r.rng.TryClaimRead()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}

		if err := decode(pkt); err != nil {
			// Undecodable datagrams are routine on a lossy transport.
			r.log.Debug("dropping undecodable packet", "err", err)
			pool.PutPacket(pkt)
			r.rng.PublishRead()

			continue
		}

		term := pkt.IsStreamCtrlTerm

		var cbErr error
		if cb := r.callback(); cb != nil {
			cbErr = cb(pkt)
		} else {
			pool.PutPacket(pkt)
		}

		r.rng.PublishRead()

		if cbErr != nil {
			r.log.Warn("callback failed, terminating", "err", cbErr)
			r.running.Store(false)
		}
		if term {
			r.running.Store(false)
		}
	}
}

func decode(pkt *packet.Packet) error {
	if _, err := pkt.UnpackHeader(); err != nil {
		return err
	}
	if _, err := pkt.UnpackItems(); err != nil {
		return err
	}
	_, err := pkt.UnpackPayload()

	return err
}
