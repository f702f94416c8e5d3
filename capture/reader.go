package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ska-sa/spead/compress"
	"github.com/ska-sa/spead/errs"
	"github.com/ska-sa/spead/packet"
)

// Reader iterates the packets of a capture file.
type Reader struct {
	comp compress.Compression
	body []byte
	pos  int
}

// NewReader consumes r entirely, validates the header and decompresses the
// body.
//
// Returns:
//   - *Reader: The reader, positioned at the first record
//   - error: errs.ErrCaptureCorrupt on a bad magic or version,
//     errs.ErrUnknownCompression for an unrecognized compression tag,
//     or a read/decompression error
func NewReader(r io.Reader) (*Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: %d-byte file", errs.ErrCaptureCorrupt, len(raw))
	}

	if m := binary.BigEndian.Uint32(raw[:4]); m != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08x", errs.ErrCaptureCorrupt, m)
	}
	if v := raw[4]; v != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", errs.ErrCaptureCorrupt, v)
	}

	comp := compress.Compression(raw[5])
	codec, err := compress.CodecFor(comp)
	if err != nil {
		return nil, err
	}

	body, err := codec.Decompress(raw[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCaptureCorrupt, err)
	}

	return &Reader{comp: comp, body: body}, nil
}

// Compression returns the compression tag the file was written with.
func (cr *Reader) Compression() compress.Compression { return cr.comp }

// Next decodes and returns the next packet.
//
// Returns:
//   - *packet.Packet: A freshly allocated decoded packet
//   - error: io.EOF after the last record, errs.ErrCaptureCorrupt on
//     damaged framing, or the packet codec's decode error
func (cr *Reader) Next() (*packet.Packet, error) {
	wire, err := cr.nextRecord()
	if err != nil {
		return nil, err
	}

	p := packet.New()
	if _, err := p.Unpack(wire); err != nil {
		return nil, err
	}

	return p, nil
}

// NextBytes returns the next record's raw bytes without decoding, aliasing
// the reader's buffer.
func (cr *Reader) NextBytes() ([]byte, error) {
	return cr.nextRecord()
}

func (cr *Reader) nextRecord() ([]byte, error) {
	if cr.pos == len(cr.body) {
		return nil, io.EOF
	}
	if cr.pos+recordLenSize > len(cr.body) {
		return nil, fmt.Errorf("%w: truncated record length", errs.ErrCaptureCorrupt)
	}

	n := int(binary.BigEndian.Uint32(cr.body[cr.pos:]))
	start := cr.pos + recordLenSize
	if start+n > len(cr.body) {
		return nil, fmt.Errorf("%w: record of %d bytes, %d remain",
			errs.ErrCaptureCorrupt, n, len(cr.body)-start)
	}
	cr.pos = start + n

	return cr.body[start : start+n], nil
}

// Replay drives fn with every packet of the capture, in record order, so a
// file can be pushed through the same code path a live receiver callback
// feeds. Iteration stops at fn's first error.
func Replay(r io.Reader, fn func(*packet.Packet) error) error {
	cr, err := NewReader(r)
	if err != nil {
		return err
	}

	for {
		p, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}
