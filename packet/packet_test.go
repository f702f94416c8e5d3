package packet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ska-sa/spead/errs"
)

// minimalHeader is the smallest valid datagram: header word only, zero
// items, empty payload.
var minimalHeader = []byte{Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 0}

func TestUnpack_MinimalPacket(t *testing.T) {
	p := New()
	n, err := p.Unpack(minimalHeader)

	require.NoError(t, err)
	require.Equal(t, HeaderLen, n)
	require.Equal(t, 0, p.NItems)
	require.Equal(t, int64(-1), p.HeapCnt)
	require.Equal(t, int64(-1), p.HeapLen)
	require.False(t, p.IsStreamCtrlTerm)
	require.Equal(t, int64(0), p.PayloadLen)
	require.True(t, p.Decoded())
}

func TestUnpack_ImmediateHeapCnt(t *testing.T) {
	wire := []byte{
		Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 1,
		0x80, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x07,
	}

	p := New()
	n, err := p.Unpack(wire)

	require.NoError(t, err)
	require.Equal(t, HeaderLen+ItemLen, n)
	require.Equal(t, 1, p.NItems)
	require.Equal(t, int64(7), p.HeapCnt)
	require.Equal(t, []ItemPointer{{Mode: ImmediateAddr, ID: HeapCntID, Address: 7}}, p.Items())
}

func TestUnpack_StreamCtrlTerm(t *testing.T) {
	wire := []byte{
		Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 1,
		0x80, 0x00, 0x06, 0x00, 0x00, 0x00, 0x00, 0x02,
	}

	p := New()
	_, err := p.Unpack(wire)

	require.NoError(t, err)
	require.True(t, p.IsStreamCtrlTerm)
}

func TestUnpack_RejectsWrongFlavor(t *testing.T) {
	tests := []struct {
		name string
		hdr  []byte
	}{
		{"bad magic", []byte{0x4B, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 0}},
		{"bad version", []byte{Magic, 3, ItemPointerWidth, AddrLen, 0, 0, 0, 0}},
		{"bad item width", []byte{Magic, Version, 8, AddrLen, 0, 0, 0, 0}},
		{"bad addr width", []byte{Magic, Version, ItemPointerWidth, 4, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			_, err := p.Unpack(tt.hdr)
			require.ErrorIs(t, err, errs.ErrUnrecognizedFormat)
		})
	}
}

func TestUnpack_ShortOrOversizeInput(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		p := New()
		_, err := p.Unpack(minimalHeader[:5])
		require.ErrorIs(t, err, errs.ErrInsufficientData)
	})

	t.Run("missing item pointers", func(t *testing.T) {
		hdr := []byte{Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 2}
		p := New()
		_, err := p.Unpack(hdr)
		require.ErrorIs(t, err, errs.ErrInsufficientData)
	})

	t.Run("payload shorter than declared", func(t *testing.T) {
		wire := []byte{
			Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 1,
			// PAYLOAD_LEN = 100 but nothing follows.
			0x80, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x64,
		}
		p := New()
		_, err := p.Unpack(wire)
		require.ErrorIs(t, err, errs.ErrInsufficientData)
	})

	t.Run("oversize datagram", func(t *testing.T) {
		p := New()
		_, err := p.Unpack(make([]byte, MaxPacketLen+1))
		require.ErrorIs(t, err, errs.ErrUnrecognizedFormat)
	})
}

func TestUnpack_PayloadDefaultsToRemainder(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	wire := append([]byte{Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 0}, payload...)

	p := New()
	n, err := p.Unpack(wire)

	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, int64(len(payload)), p.PayloadLen)
	require.Equal(t, payload, p.Payload())
}

func TestPack_RoundTrip(t *testing.T) {
	wire := []byte{
		Magic, Version, ItemPointerWidth, AddrLen, 0, 0, 0, 3,
		0x80, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x09, // HEAP_CNT 9
		0x80, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x04, // PAYLOAD_LEN 4
		0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // direct item
		0x01, 0x02, 0x03, 0x04,
	}

	p := New()
	n, err := p.Unpack(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)

	out, err := p.Pack()
	require.NoError(t, err)
	require.Equal(t, wire, out)
}

func TestSetItemsSetPayloadPack(t *testing.T) {
	p := New()
	err := p.SetItems([]ItemPointer{
		{Mode: ImmediateAddr, ID: HeapCntID, Address: 42},
		{Mode: ImmediateAddr, ID: PayloadOffID, Address: 0},
		{Mode: DirectAddr, ID: 0x2000, Address: 0},
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), p.HeapCnt)

	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, p.SetPayload(payload))
	require.Equal(t, int64(5), p.PayloadLen)

	wire, err := p.Pack()
	require.NoError(t, err)
	require.Len(t, wire, HeaderLen+3*ItemLen+5)

	// A built packet decodes back to itself.
	q := New()
	n, err := q.Unpack(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	require.Equal(t, int64(42), q.HeapCnt)
	require.Equal(t, p.Items(), q.Items())
	require.Equal(t, payload, q.Payload())
}

func TestSetPayload_Errors(t *testing.T) {
	t.Run("before SetItems", func(t *testing.T) {
		p := New()
		require.ErrorIs(t, p.SetPayload([]byte{1}), errs.ErrUninitializedPacket)
	})

	t.Run("contradicts PAYLOAD_LEN item", func(t *testing.T) {
		p := New()
		require.NoError(t, p.SetItems([]ItemPointer{
			{Mode: ImmediateAddr, ID: PayloadLenID, Address: 3},
		}))
		require.ErrorIs(t, p.SetPayload([]byte{1}), errs.ErrValueTypeMismatch)
	})

	t.Run("exceeds buffer", func(t *testing.T) {
		p := New()
		require.NoError(t, p.SetItems(nil))
		require.ErrorIs(t, p.SetPayload(make([]byte, MaxPacketLen)), errs.ErrValueTypeMismatch)
	})
}

func TestPack_Uninitialized(t *testing.T) {
	p := New()
	_, err := p.Pack()
	require.ErrorIs(t, err, errs.ErrUninitializedPacket)
}

func TestReset_ClearsDecodedState(t *testing.T) {
	p := New()
	_, err := p.Unpack(minimalHeader)
	require.NoError(t, err)

	p.Reset()
	require.False(t, p.Decoded())
	require.Equal(t, int64(-1), p.HeapCnt)
	require.Nil(t, p.Payload())
	require.Empty(t, p.Items())
}
