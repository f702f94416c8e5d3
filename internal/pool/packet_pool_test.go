package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ska-sa/spead/packet"
)

func TestPacketPool_GetReturnsReset(t *testing.T) {
	pp := NewPacketPool()

	p := pp.Get()
	require.NotNil(t, p)
	require.False(t, p.Decoded())

	// Dirty the packet, recycle it and make sure the next Get is clean.
	_, err := p.Unpack([]byte{packet.Magic, packet.Version,
		packet.ItemPointerWidth, packet.AddrLen, 0, 0, 0, 0})
	require.NoError(t, err)
	pp.Put(p)

	q := pp.Get()
	require.False(t, q.Decoded())
	require.Equal(t, int64(-1), q.HeapCnt)
	require.Equal(t, 0, q.WireLen())
}

func TestPacketPool_PutNil(t *testing.T) {
	pp := NewPacketPool()
	require.NotPanics(t, func() { pp.Put(nil) })
}

func TestDefaultPool(t *testing.T) {
	p := GetPacket()
	require.NotNil(t, p)
	PutPacket(p)
}
