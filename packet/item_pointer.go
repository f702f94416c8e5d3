package packet

import "encoding/binary"

// ItemPointer is one decoded 64-bit item pointer from a packet's pointer
// table. Bit 63 is the address mode, the next 23 bits the item id, the low
// 40 bits the address (an immediate value or a heap payload offset,
// depending on the mode).
type ItemPointer struct {
	Mode    uint8  // ImmediateAddr or DirectAddr
	ID      uint64 // protocol item id
	Address uint64 // immediate value or heap payload byte offset
}

// DecodeItemPointer splits a 64-bit pointer word into its fields.
func DecodeItemPointer(word uint64) ItemPointer {
	return ItemPointer{
		Mode:    uint8(word >> 63),
		ID:      (word >> addrBits) & idMask,
		Address: word & addrMask,
	}
}

// Word reassembles the 64-bit pointer word. Out-of-range id or address bits
// are truncated to their field widths.
func (ip ItemPointer) Word() uint64 {
	return uint64(ip.Mode&1)<<63 | (ip.ID&idMask)<<addrBits | ip.Address&addrMask
}

// Immediate reports whether the pointer carries its value in the address
// field.
func (ip ItemPointer) Immediate() bool { return ip.Mode == ImmediateAddr }

// ImmediateValue materializes an immediate pointer's value as AddrLen bytes,
// big-endian. The result is only meaningful for immediate-mode pointers.
func (ip ItemPointer) ImmediateValue() []byte {
	var w [8]byte
	binary.BigEndian.PutUint64(w[:], ip.Address)

	val := make([]byte, AddrLen)
	copy(val, w[8-AddrLen:])

	return val
}
