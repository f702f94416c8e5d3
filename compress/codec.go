package compress

import (
	"fmt"

	"github.com/ska-sa/spead/errs"
)

// Compression identifies a compression algorithm. The value is stored as a
// single byte in the capture file header.
type Compression uint8

const (
	// None represents no compression.
	None Compression = 0x1
	// Zstd represents Zstandard compression.
	Zstd Compression = 0x2
	// S2 represents S2 compression.
	S2 Compression = 0x3
	// LZ4 represents LZ4 block compression.
	LZ4 Compression = 0x4
)

func (c Compression) String() string {
	switch c {
	case None:
		return "None"
	case Zstd:
		return "Zstd"
	case S2:
		return "S2"
	case LZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor compresses one block of data.
//
// Memory management:
//   - Returned slice is owned by the caller
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor of the same algorithm. Implementations
// validate the input and return an error for corrupted or mismatched data.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// CodecFor returns the codec for a compression tag.
//
// Returns:
//   - Codec: The codec
//   - error: errs.ErrUnknownCompression for an unrecognized tag
func CodecFor(c Compression) (Codec, error) {
	switch c {
	case None:
		return NewNoOpCompressor(), nil
	case Zstd:
		return NewZstdCompressor(), nil
	case S2:
		return NewS2Compressor(), nil
	case LZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", errs.ErrUnknownCompression, uint8(c))
	}
}
