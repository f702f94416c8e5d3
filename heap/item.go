package heap

// Item is one assembled heap item produced by Finalize.
//
// Immediate-mode items carry a value of exactly packet.AddrLen bytes,
// big-endian. Direct-mode items carry the payload bytes between their
// address and the next direct-mode pointer (or the end of the heap).
type Item struct {
	// IsValid is false when the item's bytes could not be fully recovered:
	// a negative computed length (trailing packets missing) or payload gaps
	// that were zero-filled.
	IsValid bool

	// ID is the protocol item identifier.
	ID uint64

	// Value holds the materialized bytes. It is nil when the computed
	// length was negative.
	Value []byte

	// Length is the computed item length in bytes. It can be negative when
	// the packets that would have carried the item's tail never arrived.
	Length int64
}
