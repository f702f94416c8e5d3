// Package collate routes decoded packets into per-heap assembly and
// surfaces only finished heaps to user code, so a receiver callback does
// not have to track heap bookkeeping itself.
//
// A Collator keeps every in-progress heap keyed by its heap counter. Each
// added packet lands in its heap; the moment a heap reports all packets
// present it is finalized and handed to the heap handler. A stream-control
// terminator flushes whatever is still pending, finalized best-effort with
// their validity flags set accordingly.
//
// Item descriptors repeat identically across the heaps of a stream, so
// finalized descriptor values are interned by 64-bit fingerprint: repeated
// descriptors share one allocation instead of one per heap.
package collate

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/heap"
	"github.com/ska-sa/spead/packet"
)

// HeapHandler receives each finished heap, already finalized. The handler
// owns the heap; a non-nil error aborts collation and is propagated to the
// caller of Add or Flush.
type HeapHandler func(h *heap.Heap) error

// Stats counts collator activity since construction.
type Stats struct {
	// Completed heaps handed over because their packets tiled the heap.
	Completed uint64
	// Flushed heaps handed over by a stream terminator or explicit Flush.
	Flushed uint64
	// Evicted heaps handed over early because MaxPending was exceeded.
	Evicted uint64
	// Dropped packets that carried no heap counter.
	Dropped uint64
	// DescriptorsInterned counts descriptor values replaced by a shared,
	// previously seen allocation.
	DescriptorsInterned uint64
}

type config struct {
	maxPending int
}

// Option configures a Collator.
type Option func(*config)

// DefaultMaxPending bounds concurrently assembling heaps when the caller
// does not choose a bound.
const DefaultMaxPending = 64

// WithMaxPending bounds the number of heaps assembling at once. When a new
// heap would exceed the bound, the oldest pending heap is finalized as-is
// and handed over. Values below one fall back to the default.
func WithMaxPending(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPending = n
		}
	}
}

// Collator assembles packets into heaps and dispatches finished heaps.
// It is not safe for concurrent use; drive it from a single goroutine,
// typically the receiver's consumer.
type Collator struct {
	handler HeapHandler
	cfg     config

	pending map[int64]*heap.Heap
	order   []int64 // heap counters in creation order, for eviction

	interned map[uint64][]byte
	stats    Stats
}

// New creates a collator dispatching to handler.
func New(handler HeapHandler, opts ...Option) *Collator {
	cfg := config{maxPending: DefaultMaxPending}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Collator{
		handler:  handler,
		cfg:      cfg,
		pending:  make(map[int64]*heap.Heap),
		interned: make(map[uint64][]byte),
	}
}

// Pending returns the number of heaps currently assembling.
func (c *Collator) Pending() int { return len(c.pending) }

// Stats returns a snapshot of the collator's counters.
func (c *Collator) Stats() Stats { return c.stats }

// Add routes one decoded packet. A stream-control terminator flushes all
// pending heaps instead of being collated.
//
// Returns:
//   - error: errs.ErrWrongFormat for an undecoded packet,
//     errs.ErrHeapCountMismatch propagated from heap insertion,
//     or the heap handler's error
func (c *Collator) Add(pkt *packet.Packet) error {
	if pkt == nil || !pkt.Decoded() {
		return errs.ErrWrongFormat
	}

	if pkt.IsStreamCtrlTerm {
		return c.Flush()
	}

	if pkt.HeapCnt < 0 {
		// Nothing to key the heap on; the packet cannot be placed.
		c.stats.Dropped++
		return nil
	}

	h, ok := c.pending[pkt.HeapCnt]
	if !ok {
		if len(c.pending) >= c.cfg.maxPending {
			if err := c.evictOldest(); err != nil {
				return err
			}
		}

		h = heap.New()
		c.pending[pkt.HeapCnt] = h
		c.order = append(c.order, pkt.HeapCnt)
	}

	state, err := h.AddPacket(pkt)
	if err != nil {
		return err
	}

	if state == heap.Complete {
		c.stats.Completed++
		return c.dispatch(pkt.HeapCnt, h)
	}

	return nil
}

// Flush finalizes and hands over every pending heap in creation order.
// Incomplete heaps surface with their items zero-filled and flagged invalid,
// exactly as Finalize leaves them.
func (c *Collator) Flush() error {
	// dispatch removes entries from c.order, so walk a snapshot of it.
	order := append([]int64(nil), c.order...)
	for _, cnt := range order {
		h, ok := c.pending[cnt]
		if !ok {
			continue
		}
		c.stats.Flushed++
		if err := c.dispatch(cnt, h); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collator) evictOldest() error {
	for len(c.order) > 0 {
		cnt := c.order[0]
		h, ok := c.pending[cnt]
		if !ok {
			c.order = c.order[1:]
			continue
		}

		c.stats.Evicted++

		return c.dispatch(cnt, h)
	}

	return nil
}

func (c *Collator) dispatch(cnt int64, h *heap.Heap) error {
	delete(c.pending, cnt)
	for i, o := range c.order {
		if o == cnt {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	if err := h.Finalize(); err != nil {
		return fmt.Errorf("finalizing heap %d: %w", cnt, err)
	}
	c.internDescriptors(h)

	if c.handler == nil {
		return nil
	}

	return c.handler(h)
}

// internDescriptors replaces each descriptor value with the canonical copy
// for its fingerprint. A fingerprint hit with different bytes (a collision)
// leaves the value alone.
func (c *Collator) internDescriptors(h *heap.Heap) {
	items, err := h.Items()
	if err != nil {
		return
	}

	for _, item := range items {
		if item.ID != packet.DescriptorID || item.Value == nil {
			continue
		}

		sum := xxhash.Sum64(item.Value)
		if prev, ok := c.interned[sum]; ok {
			if bytes.Equal(prev, item.Value) {
				item.Value = prev
				c.stats.DescriptorsInterned++
			}
			continue
		}
		c.interned[sum] = item.Value
	}
}
