// Package heap assembles SPEAD packets that share a heap counter into a
// complete logical message and materializes its items.
//
// Packets arrive in any order; AddPacket keeps them sorted by payload
// offset, GotAllPackets reports whether the fragments tile the announced
// heap length, and Finalize walks the item-pointer tables to produce the
// item records, zero-filling bytes whose packets never arrived.
package heap

import (
	"fmt"

	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/packet"
)

// Completeness is the three-valued answer to "has the heap got all its
// packets": unknown until a HEAP_LEN item has been observed.
type Completeness int

const (
	// Unknown means no packet has announced the heap length yet.
	Unknown Completeness = iota
	// Incomplete means the payload fragments do not tile the heap length.
	Incomplete
	// Complete means the fragments exactly tile [0, heap length).
	Complete
)

func (c Completeness) String() string {
	switch c {
	case Incomplete:
		return "Incomplete"
	case Complete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Heap aggregates the packets of one logical SPEAD message.
//
// The zero value is not ready for use; call New.
type Heap struct {
	heapCnt int64 // -1 while the heap is empty
	heapLen int64 // -1 until a HEAP_LEN item is observed

	pkts  []*packet.Packet // sorted by PayloadOff, non-decreasing
	items []*Item          // populated by Finalize, traversal order

	complete       Completeness // cached; recomputed after AddPacket
	completeCached bool

	valid          bool
	finalized      bool
	lengthInferred bool
}

// New creates an empty heap.
func New() *Heap {
	return &Heap{heapCnt: -1, heapLen: -1}
}

// HeapCnt returns the heap counter, or -1 while the heap is empty.
func (h *Heap) HeapCnt() int64 { return h.heapCnt }

// HeapLen returns the announced heap payload length, or -1 if no packet
// carried a HEAP_LEN item.
func (h *Heap) HeapLen() int64 { return h.heapLen }

// IsValid reports whether every finalized item was fully recovered. It is
// only meaningful after Finalize.
func (h *Heap) IsValid() bool { return h.valid }

// LengthInferred reports whether Finalize had to estimate the heap length
// from the last fragment because no HEAP_LEN item was ever received. An
// inferred length silently hides the loss of trailing packets, so callers
// should treat trailing items of such heaps with suspicion.
func (h *Heap) LengthInferred() bool { return h.lengthInferred }

// Packets returns the constituent packets ordered by payload offset.
func (h *Heap) Packets() []*packet.Packet { return h.pkts }

// AddPacket inserts a decoded packet, keeping the packet sequence ordered
// by payload offset. A packet whose offset ties an existing one lands after
// it. The first packet fixes the heap counter; a HEAP_LEN item on any
// packet fixes the heap length.
//
// Returns:
//   - Completeness: the heap's completeness after insertion
//   - error: errs.ErrWrongFormat if pkt was never decoded,
//     errs.ErrHeapCountMismatch if pkt belongs to a different heap
func (h *Heap) AddPacket(pkt *packet.Packet) (Completeness, error) {
	if pkt == nil || !pkt.Decoded() {
		return Unknown, errs.ErrWrongFormat
	}

	if len(h.pkts) == 0 {
		h.heapCnt = pkt.HeapCnt
	} else if h.heapCnt != pkt.HeapCnt {
		return h.GotAllPackets(), fmt.Errorf("%w: packet %d, heap %d",
			errs.ErrHeapCountMismatch, pkt.HeapCnt, h.heapCnt)
	}

	// Insert after any packet with the same or smaller offset.
	i := len(h.pkts)
	for i > 0 && h.pkts[i-1].PayloadOff > pkt.PayloadOff {
		i--
	}
	h.pkts = append(h.pkts, nil)
	copy(h.pkts[i+1:], h.pkts[i:])
	h.pkts[i] = pkt

	if pkt.HeapLen >= 0 {
		h.heapLen = pkt.HeapLen
	}

	h.completeCached = false
	h.finalized = false

	return h.GotAllPackets(), nil
}

// GotAllPackets reports whether the payload fragments exactly tile
// [0, heap length). The answer is Unknown until some packet has announced
// the heap length; a known answer is cached until the next AddPacket.
func (h *Heap) GotAllPackets() Completeness {
	if h.heapLen < 0 {
		return Unknown
	}
	if h.completeCached {
		return h.complete
	}

	h.complete = Incomplete
	var next int64
	for _, pkt := range h.pkts {
		if pkt.PayloadOff != next {
			next = -1
			break
		}
		next += pkt.PayloadLen
	}
	if next == h.heapLen {
		h.complete = Complete
	}
	h.completeCached = true

	return h.complete
}

// Finalize materializes the heap's items from the packets received so far.
//
// Immediate-mode pointers become packet.AddrLen-byte big-endian values.
// A direct-mode pointer's length runs to the next direct-mode pointer in
// traversal order across all following packets, or to the end of the heap.
// Bytes whose covering packet is missing are zero-filled and mark the item
// (and the heap) invalid; a negative length leaves the item without a value.
//
// Finalize may be called again after further AddPacket calls; it rebuilds
// the item list from scratch.
func (h *Heap) Finalize() error {
	h.items = h.items[:0]
	h.valid = true
	h.finalized = true
	h.lengthInferred = false

	if len(h.pkts) == 0 {
		return nil
	}

	heapLen := h.heapLen
	if heapLen < 0 {
		last := h.pkts[len(h.pkts)-1]
		heapLen = last.PayloadOff + last.PayloadLen
		h.lengthInferred = true
	}

	for pi, pkt := range h.pkts {
		for ii, ip := range pkt.Items() {
			switch ip.ID {
			case packet.HeapCntID, packet.HeapLenID,
				packet.PayloadOffID, packet.PayloadLenID, packet.StreamCtrlID:
				continue
			}

			item := &Item{IsValid: true, ID: ip.ID}
			if ip.Immediate() {
				item.Value = ip.ImmediateValue()
				item.Length = packet.AddrLen
			} else {
				h.materializeDirect(item, ip, pi, ii, heapLen)
			}

			h.items = append(h.items, item)
			h.valid = h.valid && item.IsValid
		}
	}

	return nil
}

// materializeDirect fills item with the payload bytes a direct-mode pointer
// addresses. pi/ii locate the pointer so the length scan can start at the
// next pointer slot in traversal order.
func (h *Heap) materializeDirect(item *Item, ip packet.ItemPointer, pi, ii int, heapLen int64) {
	off := int64(ip.Address)

	// Default to the rest of the heap, then look for the next direct-mode
	// pointer across this packet's remaining slots and all later packets.
	item.Length = heapLen - off
scan:
	for pj := pi; pj < len(h.pkts); pj++ {
		start := 0
		if pj == pi {
			start = ii + 1
		}
		for _, next := range h.pkts[pj].Items()[start:] {
			if !next.Immediate() {
				item.Length = int64(next.Address) - off
				break scan
			}
		}
	}

	if item.Length < 0 {
		// The packets carrying the next pointer vanished along with the
		// item's tail; there is nothing sane to materialize.
		item.IsValid = false
		return
	}

	item.Value = make([]byte, item.Length)
	ci := 0 // cursor over packets; payload offsets only grow
	for o := int64(0); o < item.Length; o++ {
		want := off + o
		for ci < len(h.pkts) && h.pkts[ci].PayloadOff+h.pkts[ci].PayloadLen <= want {
			ci++
		}
		if ci >= len(h.pkts) || h.pkts[ci].PayloadOff > want {
			// Covering packet missing: zero-fill and poison the item.
			item.Value[o] = 0
			item.IsValid = false
			continue
		}
		item.Value[o] = h.pkts[ci].Payload()[want-h.pkts[ci].PayloadOff]
	}
}

// Items returns the finalized items in traversal order.
//
// Returns:
//   - []*Item: The items
//   - error: errs.ErrNotFinalized before Finalize
func (h *Heap) Items() ([]*Item, error) {
	if !h.finalized {
		return nil, errs.ErrNotFinalized
	}

	return h.items, nil
}

// GetItems returns the finalized items as a map from item id to the list of
// values carried under that id, in traversal order. Multi-valued ids, the
// descriptor id in particular, therefore keep every occurrence. Items whose
// value could not be materialized contribute a nil entry.
//
// Returns:
//   - map[uint64][][]byte: id → values
//   - error: errs.ErrNotFinalized before Finalize
func (h *Heap) GetItems() (map[uint64][][]byte, error) {
	if !h.finalized {
		return nil, errs.ErrNotFinalized
	}

	m := make(map[uint64][][]byte, len(h.items))
	for _, item := range h.items {
		m[item.ID] = append(m[item.ID], item.Value)
	}

	return m, nil
}
