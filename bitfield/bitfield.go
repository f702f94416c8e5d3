// Package bitfield provides big-endian bit-level reads and writes at
// arbitrary bit offsets and widths, plus format-string packing of
// heterogeneous value sequences.
//
// All multi-byte quantities are network byte order. Offsets are absolute bit
// offsets into the buffer: byte index = off/8, sub-byte shift = off%8. Widths
// run from 1 to 64 bits; a 64-bit field at a non-zero sub-byte offset spans
// nine bytes.
//
// The package is the foundation the packet codec and the heap item decoding
// stand on; it has no SPEAD-specific knowledge of its own.
package bitfield

import (
	"fmt"
	"math"

	"github.com/ska-sa/spead/errs"
)

// MaxWidth is the widest field a single read or write can cover.
const MaxWidth = 64

func checkField(buf []byte, off, width int) error {
	if width < 1 || width > MaxWidth {
		return fmt.Errorf("%w: width %d", errs.ErrFormatInvalid, width)
	}
	if off < 0 || off+width > len(buf)*8 {
		return fmt.Errorf("%w: need %d bits at offset %d, have %d bytes",
			errs.ErrBufferTooSmall, width, off, len(buf))
	}

	return nil
}

// ReadUint reads an unsigned big-endian integer of the given bit width
// starting at bit offset off.
//
// Returns:
//   - uint64: The value, right-aligned
//   - error: errs.ErrBufferTooSmall if the field extends past the buffer,
//     errs.ErrFormatInvalid if width is outside [1,64]
func ReadUint(buf []byte, off, width int) (uint64, error) {
	if err := checkField(buf, off, width); err != nil {
		return 0, err
	}

	var val uint64
	pos := off
	remaining := width
	for remaining > 0 {
		b := buf[pos/8]
		avail := 8 - pos%8
		take := avail
		if take > remaining {
			take = remaining
		}

		chunk := (uint64(b) >> (avail - take)) & ((1 << take) - 1)
		val = val<<take | chunk

		pos += take
		remaining -= take
	}

	return val, nil
}

// ReadInt reads a signed big-endian integer of the given bit width starting
// at bit offset off, sign-extending from bit width-1.
func ReadInt(buf []byte, off, width int) (int64, error) {
	u, err := ReadUint(buf, off, width)
	if err != nil {
		return 0, err
	}

	if width < 64 && u&(1<<(width-1)) != 0 {
		u |= ^uint64(0) << width
	}

	return int64(u), nil
}

// ReadFloat32 reads a 32-bit IEEE-754 float starting at bit offset off.
func ReadFloat32(buf []byte, off int) (float32, error) {
	u, err := ReadUint(buf, off, 32)
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(uint32(u)), nil
}

// ReadFloat64 reads a 64-bit IEEE-754 float starting at bit offset off.
func ReadFloat64(buf []byte, off int) (float64, error) {
	u, err := ReadUint(buf, off, 64)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(u), nil
}

// WriteUint writes the low width bits of val big-endian into buf starting at
// bit offset off. Bits outside the field keep their previous contents;
// partial first and last bytes are mask-merged.
//
// Returns:
//   - error: errs.ErrBufferTooSmall if the field extends past the buffer,
//     errs.ErrFormatInvalid if width is outside [1,64]
func WriteUint(buf []byte, val uint64, off, width int) error {
	if err := checkField(buf, off, width); err != nil {
		return err
	}

	pos := off
	remaining := width
	for remaining > 0 {
		idx := pos / 8
		avail := 8 - pos%8
		take := avail
		if take > remaining {
			take = remaining
		}

		chunk := byte((val >> (remaining - take)) & ((1 << take) - 1))
		shift := avail - take
		mask := byte(0xFF>>(8-take)) << shift
		buf[idx] = buf[idx]&^mask | chunk<<shift

		pos += take
		remaining -= take
	}

	return nil
}

// WriteInt writes a signed integer of the given bit width; the value is
// stored as width-bit two's complement.
func WriteInt(buf []byte, val int64, off, width int) error {
	return WriteUint(buf, uint64(val), off, width)
}

// WriteFloat32 writes a 32-bit IEEE-754 float starting at bit offset off.
func WriteFloat32(buf []byte, val float32, off int) error {
	return WriteUint(buf, uint64(math.Float32bits(val)), off, 32)
}

// WriteFloat64 writes a 64-bit IEEE-754 float starting at bit offset off.
func WriteFloat64(buf []byte, val float64, off int) error {
	return WriteUint(buf, math.Float64bits(val), off, 64)
}
