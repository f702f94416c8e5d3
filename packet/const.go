// Package packet implements the SPEAD wire codec: the fixed 64-bit header,
// the item-pointer table and the payload region of one UDP datagram.
//
// Only the current protocol flavor is decoded: magic 0x53, version 4,
// 3-byte item-pointer width, 5-byte heap-address width. Packets carrying any
// other flavor are rejected with errs.ErrUnrecognizedFormat.
package packet

// Wire-format constants for the supported SPEAD flavor.
const (
	// Magic is the header magic byte.
	Magic = 0x53

	// Version is the supported protocol version.
	Version = 4

	// ItemLen is the size in bytes of one item pointer on the wire.
	ItemLen = 8

	// HeaderLen is the size in bytes of the fixed header word.
	HeaderLen = 8

	// AddrLen is the heap-address width in bytes (40-bit addresses). It is
	// also the length of a materialized immediate-mode item value.
	AddrLen = 5

	// ItemPointerWidth is the byte width of the mode+id portion of an item
	// pointer, the complement of AddrLen within ItemLen.
	ItemPointerWidth = ItemLen - AddrLen

	// MaxPacketLen is the maximum datagram size in bytes.
	MaxPacketLen = 9200

	// MaxItems is the most item pointers a maximum-size datagram can carry.
	MaxItems = (MaxPacketLen - HeaderLen) / ItemLen
)

// Reserved item identifiers recognized during decoding.
const (
	HeapCntID    = 0x01 // sets Packet.HeapCnt
	HeapLenID    = 0x02 // sets Packet.HeapLen
	PayloadOffID = 0x03 // sets Packet.PayloadOff
	PayloadLenID = 0x04 // sets Packet.PayloadLen
	DescriptorID = 0x05 // preserved as an ordinary (multi-valued) item
	StreamCtrlID = 0x06 // stream control; see StreamCtrlTerm

	// StreamCtrlTerm is the stream-control value that signals end of stream.
	StreamCtrlTerm = 0x02
)

// Item-pointer address modes.
const (
	// DirectAddr marks an item whose address is a byte offset into the heap
	// payload.
	DirectAddr = 0

	// ImmediateAddr marks an item whose address field is the value itself.
	ImmediateAddr = 1
)

// DefaultPort is the IANA-registered SPEAD UDP port.
const DefaultPort = 7148

const (
	addrBits = AddrLen * 8
	addrMask = (uint64(1) << addrBits) - 1
	idBits   = 64 - addrBits - 1
	idMask   = (uint64(1) << idBits) - 1
)
