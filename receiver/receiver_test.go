package receiver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/packet"
)

// startReceiver binds an ephemeral port and returns the receiver plus a
// sender connected to it.
func startReceiver(t *testing.T, opts ...Option) (*Receiver, net.Conn) {
	t.Helper()

	rx := New(0, opts...)
	require.NoError(t, rx.Start())
	t.Cleanup(func() { _ = rx.Stop() })

	addr, ok := rx.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	conn, err := net.Dial("udp4", fmt.Sprintf("127.0.0.1:%d", addr.Port))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return rx, conn
}

func heapCntPacket(t *testing.T, cnt uint64) []byte {
	t.Helper()

	p := packet.New()
	require.NoError(t, p.SetItems([]packet.ItemPointer{
		{Mode: packet.ImmediateAddr, ID: packet.HeapCntID, Address: cnt},
	}))
	wire, err := p.Pack()
	require.NoError(t, err)

	out := make([]byte, len(wire))
	copy(out, wire)

	return out
}

func termPacket(t *testing.T) []byte {
	t.Helper()

	p := packet.New()
	require.NoError(t, p.SetItems([]packet.ItemPointer{
		{Mode: packet.ImmediateAddr, ID: packet.StreamCtrlID, Address: packet.StreamCtrlTerm},
	}))
	wire, err := p.Pack()
	require.NoError(t, err)

	out := make([]byte, len(wire))
	copy(out, wire)

	return out
}

func TestReceiver_DeliversInArrivalOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int64

	rx, conn := startReceiver(t)
	rx.SetCallback(func(pkt *packet.Packet) error {
		mu.Lock()
		got = append(got, pkt.HeapCnt)
		mu.Unlock()
		ReleasePacket(pkt)

		return nil
	})

	const n = 20
	for i := 0; i < n; i++ {
		_, err := conn.Write(heapCntPacket(t, uint64(i)))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == n
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, cnt := range got {
		require.Equal(t, int64(i), cnt)
	}
}

func TestReceiver_StreamTermStopsPipeline(t *testing.T) {
	seen := make(chan int64, 8)

	rx, conn := startReceiver(t)
	rx.SetCallback(func(pkt *packet.Packet) error {
		seen <- pkt.HeapCnt
		ReleasePacket(pkt)

		return nil
	})

	_, err := conn.Write(heapCntPacket(t, 1))
	require.NoError(t, err)
	_, err = conn.Write(termPacket(t))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !rx.Running() },
		2*time.Second, 10*time.Millisecond)

	// The data packet and the terminator itself both reached the callback.
	require.Equal(t, int64(1), <-seen)
	require.Equal(t, int64(-1), <-seen)

	// Stop still cleans up after self-termination.
	require.NoError(t, rx.Stop())
	require.ErrorIs(t, rx.Stop(), errs.ErrNotRunning)
}

func TestReceiver_CallbackErrorIsFatal(t *testing.T) {
	rx, conn := startReceiver(t)
	rx.SetCallback(func(pkt *packet.Packet) error {
		ReleasePacket(pkt)

		return errors.New("reject")
	})

	_, err := conn.Write(heapCntPacket(t, 1))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !rx.Running() },
		2*time.Second, 10*time.Millisecond)
}

func TestReceiver_UndecodablePacketsAreDropped(t *testing.T) {
	var mu sync.Mutex
	var got []int64

	rx, conn := startReceiver(t)
	rx.SetCallback(func(pkt *packet.Packet) error {
		mu.Lock()
		got = append(got, pkt.HeapCnt)
		mu.Unlock()
		ReleasePacket(pkt)

		return nil
	})

	_, err := conn.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0})
	require.NoError(t, err)
	_, err = conn.Write(heapCntPacket(t, 7))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == 1 && got[0] == 7
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReceiver_StopIsBounded(t *testing.T) {
	rx, _ := startReceiver(t)

	start := time.Now()
	require.NoError(t, rx.Stop())
	require.Less(t, time.Since(start), time.Second)
	require.False(t, rx.Running())
}

func TestReceiver_Lifecycle(t *testing.T) {
	rx := New(0)

	require.ErrorIs(t, rx.Stop(), errs.ErrNotRunning)

	require.NoError(t, rx.Start())
	require.ErrorIs(t, rx.Start(), errs.ErrAlreadyRunning)
	require.True(t, rx.Running())

	require.NoError(t, rx.Stop())
	require.ErrorIs(t, rx.Stop(), errs.ErrNotRunning)

	// A stopped receiver can be started again.
	require.NoError(t, rx.Start())
	require.NoError(t, rx.Stop())
}

func TestReceiver_SmallRing(t *testing.T) {
	var mu sync.Mutex
	count := 0

	rx, conn := startReceiver(t, WithRingSlots(2))
	rx.SetCallback(func(pkt *packet.Packet) error {
		mu.Lock()
		count++
		mu.Unlock()
		ReleasePacket(pkt)

		return nil
	})

	const n = 16
	for i := 0; i < n; i++ {
		_, err := conn.Write(heapCntPacket(t, uint64(i)))
		require.NoError(t, err)
		// Pace the sender a little so the 2-slot ring backpressure does not
		// overflow the tiny OS buffer on slow CI machines.
		if i%4 == 3 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return count == n
	}, 3*time.Second, 10*time.Millisecond)
}
