package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/ska-sa/spead/errs"
)

// Packet is one SPEAD datagram: the fixed header word, the item-pointer
// table and the payload fragment, all backed by a single wire buffer.
//
// A Packet is either decoded from received bytes (Unpack, or the staged
// UnpackHeader/UnpackItems/UnpackPayload) or built for the send path
// (SetItems then SetPayload) and serialized with Pack.
type Packet struct {
	// HeapCnt is the heap counter this packet belongs to, -1 when no
	// HEAP_CNT item was present.
	HeapCnt int64
	// HeapLen is the total heap payload length, -1 when no HEAP_LEN item
	// was present.
	HeapLen int64
	// NItems is the number of item pointers, excluding the header word.
	NItems int
	// IsStreamCtrlTerm reports a STREAM_CTRL item carrying the end-of-stream
	// value.
	IsStreamCtrlTerm bool
	// PayloadOff is this fragment's byte offset within the heap payload.
	PayloadOff int64
	// PayloadLen is the fragment's length in bytes, -1 until decoded.
	PayloadLen int64

	data    [MaxPacketLen]byte
	wireLen int // valid bytes in data

	items        []ItemPointer
	payloadStart int  // payload offset within data, -1 until items decoded
	decoded      bool // header and items successfully decoded
}

// New creates an empty Packet ready for Unpack or SetItems.
func New() *Packet {
	p := &Packet{}
	p.Reset()

	return p
}

// Reset returns the packet to its freshly-constructed state so its buffer
// can be reused for another datagram.
func (p *Packet) Reset() {
	p.HeapCnt = -1
	p.HeapLen = -1
	p.NItems = 0
	p.IsStreamCtrlTerm = false
	p.PayloadOff = 0
	p.PayloadLen = -1
	p.wireLen = 0
	p.items = p.items[:0]
	p.payloadStart = -1
	p.decoded = false
}

// Buffer exposes the full backing buffer for the producer to read one
// datagram into. After the read, hand the byte count to SetWireLen.
func (p *Packet) Buffer() []byte { return p.data[:] }

// SetWireLen records how many bytes of the backing buffer hold wire data.
func (p *Packet) SetWireLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxPacketLen {
		n = MaxPacketLen
	}
	p.wireLen = n
}

// WireLen returns the number of valid wire bytes in the backing buffer.
func (p *Packet) WireLen() int { return p.wireLen }

// Decoded reports whether the header and item table have been successfully
// decoded, the precondition for heap insertion.
func (p *Packet) Decoded() bool { return p.decoded }

// Unpack copies data into the packet's buffer and runs all three decode
// stages. It returns the number of meaningful bytes consumed:
// HeaderLen + NItems*ItemLen + PayloadLen.
//
// Returns:
//   - int: Bytes consumed
//   - error: errs.ErrInsufficientData if any stage's prefix is short,
//     errs.ErrUnrecognizedFormat on a flavor mismatch or oversize datagram
func (p *Packet) Unpack(data []byte) (int, error) {
	if len(data) > MaxPacketLen {
		return 0, fmt.Errorf("%w: %d bytes exceeds max datagram size %d",
			errs.ErrUnrecognizedFormat, len(data), MaxPacketLen)
	}

	p.Reset()
	copy(p.data[:], data)
	p.wireLen = len(data)

	n, err := p.UnpackHeader()
	if err != nil {
		return 0, err
	}

	in, err := p.UnpackItems()
	if err != nil {
		return 0, err
	}

	pn, err := p.UnpackPayload()
	if err != nil {
		return 0, err
	}

	return n + in + pn, nil
}

// UnpackHeader validates the 64-bit header word at the start of the wire
// buffer and fixes NItems. It returns HeaderLen on success.
func (p *Packet) UnpackHeader() (int, error) {
	if p.wireLen < HeaderLen {
		return 0, fmt.Errorf("%w: %d bytes for header", errs.ErrInsufficientData, p.wireLen)
	}

	hdr := binary.BigEndian.Uint64(p.data[:HeaderLen])
	magic := byte(hdr >> 56)
	version := byte(hdr >> 48)
	itemWidth := byte(hdr >> 40)
	heapWidth := byte(hdr >> 32)

	if magic != Magic || version != Version ||
		itemWidth != ItemPointerWidth || heapWidth != AddrLen {
		return 0, fmt.Errorf("%w: header %02x %02x %02x %02x",
			errs.ErrUnrecognizedFormat, magic, version, itemWidth, heapWidth)
	}

	p.NItems = int(uint16(hdr))

	return HeaderLen, nil
}

// UnpackItems walks the item-pointer table, populating the reserved header
// fields and locating the payload region within the wire buffer. It must run
// after UnpackHeader and returns NItems*ItemLen on success.
func (p *Packet) UnpackItems() (int, error) {
	tableLen := p.NItems * ItemLen
	if p.wireLen < HeaderLen+tableLen {
		return 0, fmt.Errorf("%w: %d bytes for %d item pointers",
			errs.ErrInsufficientData, p.wireLen, p.NItems)
	}

	p.items = p.items[:0]
	for i := 0; i < p.NItems; i++ {
		word := binary.BigEndian.Uint64(p.data[HeaderLen+i*ItemLen:])
		ip := DecodeItemPointer(word)
		p.items = append(p.items, ip)

		switch ip.ID {
		case HeapCntID:
			p.HeapCnt = int64(ip.Address)
		case HeapLenID:
			p.HeapLen = int64(ip.Address)
		case PayloadOffID:
			p.PayloadOff = int64(ip.Address)
		case PayloadLenID:
			p.PayloadLen = int64(ip.Address)
		case StreamCtrlID:
			if ip.Address == StreamCtrlTerm {
				p.IsStreamCtrlTerm = true
			}
		}
	}

	p.payloadStart = HeaderLen + tableLen
	avail := int64(p.wireLen - p.payloadStart)
	if p.PayloadLen < 0 {
		// No PAYLOAD_LEN item: the payload is the rest of the datagram.
		p.PayloadLen = avail
	} else if p.PayloadLen > avail {
		p.payloadStart = -1
		return 0, fmt.Errorf("%w: payload length %d exceeds %d remaining bytes",
			errs.ErrInsufficientData, p.PayloadLen, avail)
	}

	p.decoded = true

	return tableLen, nil
}

// UnpackPayload completes decoding. The payload already lives in the shared
// wire buffer, so this only re-checks bounds and returns PayloadLen.
func (p *Packet) UnpackPayload() (int, error) {
	if p.payloadStart < 0 {
		return 0, fmt.Errorf("%w: items not decoded", errs.ErrInsufficientData)
	}
	if int64(p.payloadStart)+p.PayloadLen > int64(p.wireLen) {
		return 0, fmt.Errorf("%w: payload extends past datagram", errs.ErrInsufficientData)
	}

	return int(p.PayloadLen), nil
}

// Items returns the decoded item pointers in table order. The slice is owned
// by the packet and is valid until the next Reset or Unpack.
func (p *Packet) Items() []ItemPointer { return p.items }

// Payload returns the payload region of the wire buffer, or nil before the
// item table has been decoded. The slice aliases the packet's buffer.
func (p *Packet) Payload() []byte {
	if p.payloadStart < 0 || p.PayloadLen < 0 {
		return nil
	}

	return p.data[p.payloadStart : int64(p.payloadStart)+p.PayloadLen]
}

// SetItems installs an item-pointer table for the send path: it writes the
// header word and the pointers into the wire buffer and re-derives the
// reserved header fields exactly as decoding would.
//
// Returns:
//   - error: errs.ErrUninitializedPacket if the table exceeds MaxItems
func (p *Packet) SetItems(items []ItemPointer) error {
	if len(items) > MaxItems {
		return fmt.Errorf("%w: %d item pointers exceeds max %d",
			errs.ErrUninitializedPacket, len(items), MaxItems)
	}

	p.Reset()
	p.NItems = len(items)

	hdr := uint64(Magic)<<56 | uint64(Version)<<48 |
		uint64(ItemPointerWidth)<<40 | uint64(AddrLen)<<32 | uint64(uint16(len(items)))
	binary.BigEndian.PutUint64(p.data[:], hdr)

	p.items = append(p.items[:0], items...)
	for i, ip := range items {
		binary.BigEndian.PutUint64(p.data[HeaderLen+i*ItemLen:], ip.Word())

		switch ip.ID {
		case HeapCntID:
			p.HeapCnt = int64(ip.Address)
		case HeapLenID:
			p.HeapLen = int64(ip.Address)
		case PayloadOffID:
			p.PayloadOff = int64(ip.Address)
		case PayloadLenID:
			p.PayloadLen = int64(ip.Address)
		case StreamCtrlID:
			if ip.Address == StreamCtrlTerm {
				p.IsStreamCtrlTerm = true
			}
		}
	}

	p.payloadStart = HeaderLen + len(items)*ItemLen
	if p.PayloadLen < 0 {
		p.PayloadLen = 0
	}
	p.wireLen = p.payloadStart + int(p.PayloadLen)
	p.decoded = true

	return nil
}

// SetPayload copies payload into the wire buffer after the item-pointer
// table. SetItems must have been called first.
//
// Returns:
//   - error: errs.ErrUninitializedPacket before SetItems,
//     errs.ErrValueTypeMismatch if the payload does not fit the buffer or
//     contradicts a PAYLOAD_LEN item already installed
func (p *Packet) SetPayload(payload []byte) error {
	if p.payloadStart < 0 {
		return fmt.Errorf("%w: set items before payload", errs.ErrUninitializedPacket)
	}
	if p.payloadStart+len(payload) > MaxPacketLen {
		return fmt.Errorf("%w: %d payload bytes exceed packet buffer",
			errs.ErrValueTypeMismatch, len(payload))
	}

	declared := int64(-1)
	for _, ip := range p.items {
		if ip.ID == PayloadLenID {
			declared = int64(ip.Address)
		}
	}
	if declared >= 0 && declared != int64(len(payload)) {
		return fmt.Errorf("%w: %d payload bytes, PAYLOAD_LEN item says %d",
			errs.ErrValueTypeMismatch, len(payload), declared)
	}

	copy(p.data[p.payloadStart:], payload)
	p.PayloadLen = int64(len(payload))
	p.wireLen = p.payloadStart + len(payload)

	return nil
}

// Pack serializes the packet and returns the exact wire prefix:
// HeaderLen + NItems*ItemLen + PayloadLen bytes. The returned slice aliases
// the packet's buffer and is valid until the next mutation.
//
// Returns:
//   - []byte: The wire bytes
//   - error: errs.ErrUninitializedPacket if the packet was never decoded or
//     built
func (p *Packet) Pack() ([]byte, error) {
	if !p.decoded || p.payloadStart < 0 || p.PayloadLen < 0 {
		return nil, errs.ErrUninitializedPacket
	}

	end := int64(p.payloadStart) + p.PayloadLen

	return p.data[:end], nil
}
