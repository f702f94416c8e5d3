// Package spead implements the receive side of SPEAD, the Streaming
// Protocol for Exchanging Astronomical Data: a best-effort UDP protocol
// that carries self-describing numeric data as packets aggregating into
// heaps.
//
// The module is organized bottom-up:
//
//   - bitfield: big-endian bit-level reads/writes and format-string packing
//   - packet: the wire codec for one datagram (header, item pointers, payload)
//   - heap: out-of-order reassembly of one heap and item materialization
//   - receiver: the buffered UDP ingest pipeline (ring of packet slots,
//     producer/consumer goroutines, user callback)
//   - collate: routing packets into heaps and surfacing finished heaps
//   - capture: record and replay of packet streams, optionally compressed
//
// # Receiving
//
// Listening on the registered port and assembling heaps:
//
//	import (
//	    "github.com/ska-sa/spead"
//	    "github.com/ska-sa/spead/heap"
//	    "github.com/ska-sa/spead/packet"
//	)
//
//	col := spead.NewCollator(func(h *heap.Heap) error {
//	    items, _ := h.GetItems()
//	    process(h.HeapCnt(), items)
//	    for _, p := range h.Packets() {
//	        spead.ReleasePacket(p)
//	    }
//	    return nil
//	})
//
//	rx := spead.NewReceiver(spead.DefaultPort)
//	rx.SetCallback(func(pkt *packet.Packet) error {
//	    return col.Add(pkt)
//	})
//	if err := rx.Start(); err != nil {
//	    return err
//	}
//	defer rx.Stop()
//
// The callback owns each packet; ReleasePacket recycles its buffer. Here the
// collator's heaps hold the packets, so they are released only once their
// heap has been handled. A stream-control terminator in the stream stops the
// pipeline on its own.
//
// # Direct codec use
//
// Packets can be decoded and built without the pipeline:
//
//	var p packet.Packet
//	n, err := p.Unpack(datagram)
//
// and heterogeneous values packed at sub-byte bit offsets with Pack and
// Unpack, mirroring the protocol's format strings.
//
// This package is a thin facade; the subpackages carry the implementation
// and can be used directly.
package spead

import (
	"github.com/ska-sa/spead/bitfield"
	"github.com/ska-sa/spead/collate"
	"github.com/ska-sa/spead/heap"
	"github.com/ska-sa/spead/packet"
	"github.com/ska-sa/spead/receiver"
)

// Canonical wire constants, re-exported from the packet package.
const (
	Magic        = packet.Magic
	Version      = packet.Version
	ItemLen      = packet.ItemLen
	HeaderLen    = packet.HeaderLen
	AddrLen      = packet.AddrLen
	MaxPacketLen = packet.MaxPacketLen

	HeapCntID      = packet.HeapCntID
	HeapLenID      = packet.HeapLenID
	PayloadOffID   = packet.PayloadOffID
	PayloadLenID   = packet.PayloadLenID
	DescriptorID   = packet.DescriptorID
	StreamCtrlID   = packet.StreamCtrlID
	StreamCtrlTerm = packet.StreamCtrlTerm

	DirectAddr    = packet.DirectAddr
	ImmediateAddr = packet.ImmediateAddr

	DefaultPort = packet.DefaultPort
)

// NewPacket creates an empty packet ready for Unpack or SetItems.
func NewPacket() *packet.Packet {
	return packet.New()
}

// NewHeap creates an empty heap assembler.
func NewHeap() *heap.Heap {
	return heap.New()
}

// NewReceiver creates a UDP ingest pipeline for the given port.
func NewReceiver(port int, opts ...receiver.Option) *receiver.Receiver {
	return receiver.New(port, opts...)
}

// NewCollator creates a heap collator dispatching finished heaps to handler.
func NewCollator(handler collate.HeapHandler, opts ...collate.Option) *collate.Collator {
	return collate.New(handler, opts...)
}

// ReleasePacket returns a callback-owned packet to the receive pool.
func ReleasePacket(p *packet.Packet) {
	receiver.ReleasePacket(p)
}

// Unpack decodes count repetitions of the format string raw from data,
// starting at sub-byte bit offset off. See bitfield.Format.Unpack.
func Unpack(raw, data []byte, count, off int) ([][]any, error) {
	return bitfield.Unpack(raw, data, count, off)
}

// Pack encodes repetitions of the format string raw into a fresh byte
// slice, starting at sub-byte bit offset off. See bitfield.Format.Pack.
func Pack(raw []byte, values [][]any, off int) ([]byte, error) {
	return bitfield.Pack(raw, values, off)
}
