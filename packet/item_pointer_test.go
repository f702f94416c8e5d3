package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeItemPointer(t *testing.T) {
	tests := []struct {
		name string
		word uint64
		want ItemPointer
	}{
		{
			"immediate heap cnt",
			0x8000010000000007,
			ItemPointer{Mode: ImmediateAddr, ID: HeapCntID, Address: 7},
		},
		{
			"direct at offset",
			0x0000100000000020,
			ItemPointer{Mode: DirectAddr, ID: 0x10, Address: 0x20},
		},
		{
			"max id and address",
			0xFFFFFFFFFFFFFFFF,
			ItemPointer{Mode: ImmediateAddr, ID: idMask, Address: addrMask},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeItemPointer(tt.word)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.word, got.Word())
		})
	}
}

func TestItemPointer_Immediate(t *testing.T) {
	require.True(t, ItemPointer{Mode: ImmediateAddr}.Immediate())
	require.False(t, ItemPointer{Mode: DirectAddr}.Immediate())
}

func TestItemPointer_ImmediateValue(t *testing.T) {
	ip := ItemPointer{Mode: ImmediateAddr, ID: 0x123, Address: 0x0102030405}
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, ip.ImmediateValue())

	// Small values are left-padded to the full address width.
	ip.Address = 7
	require.Equal(t, []byte{0, 0, 0, 0, 7}, ip.ImmediateValue())
}
