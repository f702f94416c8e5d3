// Package errs defines the sentinel errors shared by all spead packages.
//
// Callers match them with errors.Is; packages wrap them with %w to add
// context without losing the sentinel.
package errs

import "errors"

// Wire and codec errors.
var (
	// ErrUnrecognizedFormat indicates a packet header whose magic, version or
	// pointer widths do not match the supported SPEAD flavor.
	ErrUnrecognizedFormat = errors.New("unrecognized SPEAD packet format")

	// ErrInsufficientData indicates the supplied bytes are shorter than the
	// packet's header, item-pointer table or payload requires.
	ErrInsufficientData = errors.New("insufficient data for SPEAD packet")

	// ErrUninitializedPacket indicates Pack was called on a packet whose
	// header fields were never set or decoded.
	ErrUninitializedPacket = errors.New("packet is uninitialized or malformed")

	// ErrFormatInvalid indicates a malformed format string in Pack/Unpack.
	ErrFormatInvalid = errors.New("invalid format string")

	// ErrValueTypeMismatch indicates a value that cannot be converted to its
	// format slot.
	ErrValueTypeMismatch = errors.New("value does not match format")

	// ErrBufferTooSmall indicates insufficient bytes for a requested
	// bit-field read, write or format unpack.
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Heap assembly errors.
var (
	// ErrHeapCountMismatch indicates a packet that belongs to a different heap.
	ErrHeapCountMismatch = errors.New("packet heap count does not match heap")

	// ErrWrongFormat indicates a packet that was not decoded before heap
	// insertion.
	ErrWrongFormat = errors.New("packet has not been decoded")

	// ErrNotFinalized indicates GetItems was called before Finalize.
	ErrNotFinalized = errors.New("heap has not been finalized")
)

// Receiver lifecycle errors.
var (
	// ErrAlreadyRunning indicates Start on a receiver that is not idle.
	ErrAlreadyRunning = errors.New("receiver already running")

	// ErrNotRunning indicates Stop on a receiver that is not running.
	ErrNotRunning = errors.New("receiver not running")

	// ErrSocket indicates a socket setup failure (bind or setsockopt).
	ErrSocket = errors.New("socket setup failed")
)

// Capture file errors.
var (
	// ErrCaptureCorrupt indicates a capture file with damaged framing.
	ErrCaptureCorrupt = errors.New("capture file corrupt")

	// ErrUnknownCompression indicates a capture file compressed with an
	// algorithm this build does not recognize.
	ErrUnknownCompression = errors.New("unknown compression type")
)
