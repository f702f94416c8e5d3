// Package ring implements the fixed-capacity slot ring between the ingest
// pipeline's producer and consumer.
//
// Each slot carries at most one packet and a pair of binary gates: the write
// gate is available when the slot may be filled, the read gate when it may
// be drained. The gates alternate strictly (producer releases, consumer
// acquires, consumer releases, producer acquires), so a slot is never read
// while being written and never recycled while being read.
//
// Exactly one producer and one consumer are supported; the indices are not
// shared between goroutines, only the gates are.
package ring

import (
	"time"

	"github.com/ska-sa/spead/packet"
)

// DefaultSlots is the ring capacity used when the caller does not choose one.
const DefaultSlots = 128

type slot struct {
	pkt *packet.Packet

	// 1-buffered channels used as binary semaphores. On startup every
	// write gate holds a token and every read gate is empty.
	writeGate chan struct{}
	readGate  chan struct{}
}

// Ring is the cyclic slot sequence. Construct with New.
type Ring struct {
	slots    []slot
	writeIdx int // touched only by the producer
	readIdx  int // touched only by the consumer
}

// New creates a ring with n slots, or DefaultSlots if n is not positive.
func New(n int) *Ring {
	if n <= 0 {
		n = DefaultSlots
	}

	r := &Ring{slots: make([]slot, n)}
	for i := range r.slots {
		r.slots[i].writeGate = make(chan struct{}, 1)
		r.slots[i].readGate = make(chan struct{}, 1)
		r.slots[i].writeGate <- struct{}{}
	}

	return r
}

// Len returns the ring capacity.
func (r *Ring) Len() int { return len(r.slots) }

// ClaimWrite acquires exclusive write access to the current write slot,
// waiting up to timeout for the consumer to recycle it. It returns false if
// the timeout elapsed; the producer should re-check its run flag and retry.
func (r *Ring) ClaimWrite(timeout time.Duration) bool {
	s := &r.slots[r.writeIdx]

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-s.writeGate:
		return true
	case <-t.C:
		return false
	}
}

// PublishWrite stores pkt into the claimed write slot, advances the write
// index and releases the slot to the consumer. It must only follow a
// successful ClaimWrite.
func (r *Ring) PublishWrite(pkt *packet.Packet) {
	s := &r.slots[r.writeIdx]
	s.pkt = pkt
	r.writeIdx = (r.writeIdx + 1) % len(r.slots)
	s.readGate <- struct{}{}
}

// AbortWrite releases a claimed write slot without publishing, returning
// the write token so the slot can be claimed again. Used when the producer
// shuts down between claim and publish.
func (r *Ring) AbortWrite() {
	r.slots[r.writeIdx].writeGate <- struct{}{}
}

// TryClaimRead attempts to acquire the current read slot without blocking.
// On success it returns the slot's packet; the consumer must follow up with
// PublishRead. The bounded-poll loop this enables is what keeps shutdown
// latency independent of arriving traffic.
func (r *Ring) TryClaimRead() (*packet.Packet, bool) {
	s := &r.slots[r.readIdx]

	select {
	case <-s.readGate:
		return s.pkt, true
	default:
		return nil, false
	}
}

// PublishRead recycles the claimed read slot back to the producer and
// advances the read index. It must only follow a successful TryClaimRead.
func (r *Ring) PublishRead() {
	s := &r.slots[r.readIdx]
	s.pkt = nil
	r.readIdx = (r.readIdx + 1) % len(r.slots)
	s.writeGate <- struct{}{}
}
