// Package capture records SPEAD packet streams to a compact file and plays
// them back through the packet codec, so a live stream can be re-driven
// through the same consumer code offline.
//
// File layout: an 8-byte header (the magic "SPC1", a version byte, a
// compression tag and two reserved bytes) followed by the body, compressed
// as one block by the selected codec. The body is a sequence of records,
// each a big-endian uint32 length followed by the packet's wire bytes.
package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ska-sa/spead/compress"
	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/packet"
)

const (
	// Magic opens every capture file: "SPC1" big-endian.
	Magic = 0x53504331

	// FormatVersion is the capture file layout version this package writes.
	FormatVersion = 1

	// headerLen is the fixed file header size in bytes.
	headerLen = 8

	// recordLenSize is the length prefix of one body record.
	recordLenSize = 4
)

// Writer accumulates packet records and writes the finished capture file on
// Close. Records are buffered uncompressed so the codec sees the body as a
// single block.
type Writer struct {
	w     io.Writer
	codec compress.Codec
	comp  compress.Compression

	body   []byte
	count  int
	closed bool
}

// NewWriter creates a capture writer targeting w with the given compression.
//
// Returns:
//   - *Writer: The writer
//   - error: errs.ErrUnknownCompression for an unrecognized tag
func NewWriter(w io.Writer, comp compress.Compression) (*Writer, error) {
	codec, err := compress.CodecFor(comp)
	if err != nil {
		return nil, err
	}

	return &Writer{w: w, codec: codec, comp: comp}, nil
}

// WritePacket appends one packet's wire bytes as a record.
//
// Returns:
//   - error: errs.ErrUninitializedPacket from packing an unbuilt packet,
//     or a write error after Close
func (cw *Writer) WritePacket(p *packet.Packet) error {
	wire, err := p.Pack()
	if err != nil {
		return err
	}

	return cw.WriteBytes(wire)
}

// WriteBytes appends one raw datagram as a record, without decoding it.
func (cw *Writer) WriteBytes(b []byte) error {
	if cw.closed {
		return fmt.Errorf("%w: writer closed", errs.ErrCaptureCorrupt)
	}

	var lenPrefix [recordLenSize]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(b)))
	cw.body = append(cw.body, lenPrefix[:]...)
	cw.body = append(cw.body, b...)
	cw.count++

	return nil
}

// Count returns the number of records written so far.
func (cw *Writer) Count() int { return cw.count }

// Close compresses the body and writes header and body to the target.
// The Writer is unusable afterwards.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	compressed, err := cw.codec.Compress(cw.body)
	if err != nil {
		return fmt.Errorf("compressing capture body: %w", err)
	}

	var hdr [headerLen]byte
	binary.BigEndian.PutUint32(hdr[:4], Magic)
	hdr[4] = FormatVersion
	hdr[5] = byte(cw.comp)

	if _, err := cw.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := cw.w.Write(compressed); err != nil {
		return err
	}
	cw.body = nil

	return nil
}
