// Package pool recycles the per-datagram packet allocations of the ingest
// hot path.
//
// The producer takes one packet per datagram; ownership then travels through
// the ring into the user callback, which releases the packet when it is done
// with it. Releasing is optional, since an un-released packet is simply
// collected by the GC, but a release keeps the steady-state receive loop free of
// fresh 9,200-byte buffer allocations.
package pool

import (
	"sync"

	"github.com/ska-sa/spead/packet"
)

// PacketPool is a pool of packets with their backing wire buffers.
//
// It uses sync.Pool internally, so idle packets are dropped under memory
// pressure rather than retained forever.
type PacketPool struct {
	pool sync.Pool
}

// NewPacketPool creates an empty packet pool.
func NewPacketPool() *PacketPool {
	return &PacketPool{
		pool: sync.Pool{
			New: func() any {
				return packet.New()
			},
		},
	}
}

// Get retrieves a reset packet from the pool.
func (pp *PacketPool) Get() *packet.Packet {
	p, _ := pp.pool.Get().(*packet.Packet)

	return p
}

// Put returns a packet to the pool for reuse. The packet must no longer be
// referenced by the caller: its buffer is handed to the next Get.
func (pp *PacketPool) Put(p *packet.Packet) {
	if p == nil {
		return
	}

	p.Reset()
	pp.pool.Put(p)
}

var defaultPool = NewPacketPool()

// GetPacket retrieves a packet from the default pool.
func GetPacket() *packet.Packet {
	return defaultPool.Get()
}

// PutPacket returns a packet to the default pool.
func PutPacket(p *packet.Packet) {
	defaultPool.Put(p)
}
