package bitfield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ska-sa/spead/errs"
)

func TestReadUint_Known(t *testing.T) {
	buf := []byte{0xA5, 0x3C, 0xF0}

	tests := []struct {
		name  string
		off   int
		width int
		want  uint64
	}{
		{"full first byte", 0, 8, 0xA5},
		{"high nibble", 0, 4, 0xA},
		{"low nibble", 4, 4, 0x5},
		{"single bit set", 0, 1, 1},
		{"single bit clear", 1, 1, 0},
		{"straddles bytes", 4, 8, 0x53},
		{"twelve bits", 4, 12, 0x53C},
		{"all three bytes", 0, 24, 0xA53CF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadUint(buf, tt.off, tt.width)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteReadUint_Idempotent(t *testing.T) {
	widths := []int{1, 3, 7, 8, 13, 24, 32, 40, 63, 64}

	for off := 0; off < 8; off++ {
		for _, width := range widths {
			buf := make([]byte, 10)
			// A value with bits at both ends of the field.
			val := (uint64(1)<<(width-1) | 1) & maskOf(width)

			require.NoError(t, WriteUint(buf, val, off, width))

			got, err := ReadUint(buf, off, width)
			require.NoError(t, err)
			require.Equal(t, val, got, "off=%d width=%d", off, width)
		}
	}
}

func TestWriteUint_PreservesNeighbors(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF}
	require.NoError(t, WriteUint(buf, 0, 6, 10))

	// Bits 0-5 and 16-23 must be untouched.
	require.Equal(t, byte(0xFC), buf[0])
	require.Equal(t, byte(0x00), buf[1])
	require.Equal(t, byte(0xFF), buf[2])
}

func TestReadInt_SignExtension(t *testing.T) {
	tests := []struct {
		name  string
		val   int64
		width int
	}{
		{"minus one", -1, 5},
		{"most negative", -16, 5},
		{"most positive", 15, 5},
		{"minus one 40-bit", -1, 40},
		{"negative 64-bit", math.MinInt64, 64},
		{"positive 64-bit", math.MaxInt64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, off := range []int{0, 3} {
				buf := make([]byte, 10)
				require.NoError(t, WriteInt(buf, tt.val, off, tt.width))

				got, err := ReadInt(buf, off, tt.width)
				require.NoError(t, err)
				require.Equal(t, tt.val, got)
			}
		})
	}
}

func TestFloats_RoundTrip(t *testing.T) {
	vals := []float64{0, 1.5, -273.15, math.Pi, math.Inf(1)}

	for _, v := range vals {
		for _, off := range []int{0, 5} {
			buf := make([]byte, 10)

			require.NoError(t, WriteFloat64(buf, v, off))
			got64, err := ReadFloat64(buf, off)
			require.NoError(t, err)
			require.Equal(t, v, got64)

			require.NoError(t, WriteFloat32(buf, float32(v), off))
			got32, err := ReadFloat32(buf, off)
			require.NoError(t, err)
			require.Equal(t, float32(v), got32)
		}
	}
}

func TestBigEndianLayout(t *testing.T) {
	// A byte-aligned 16-bit write must land most significant byte first.
	buf := make([]byte, 2)
	require.NoError(t, WriteUint(buf, 0x1234, 0, 16))
	require.Equal(t, []byte{0x12, 0x34}, buf)
}

func TestFieldErrors(t *testing.T) {
	buf := make([]byte, 2)

	t.Run("width zero", func(t *testing.T) {
		_, err := ReadUint(buf, 0, 0)
		require.ErrorIs(t, err, errs.ErrFormatInvalid)
	})

	t.Run("width over 64", func(t *testing.T) {
		err := WriteUint(buf, 0, 0, 65)
		require.ErrorIs(t, err, errs.ErrFormatInvalid)
	})

	t.Run("field past buffer", func(t *testing.T) {
		_, err := ReadUint(buf, 9, 8)
		require.ErrorIs(t, err, errs.ErrBufferTooSmall)
	})

	t.Run("write past buffer", func(t *testing.T) {
		err := WriteUint(buf, 0, 0, 17)
		require.ErrorIs(t, err, errs.ErrBufferTooSmall)
	})
}

func maskOf(width int) uint64 {
	if width == 64 {
		return ^uint64(0)
	}

	return (1 << width) - 1
}

func BenchmarkReadUint(b *testing.B) {
	buf := make([]byte, 16)
	for i := 0; i < b.N; i++ {
		_, _ = ReadUint(buf, i%8, 40)
	}
}

func BenchmarkWriteUint(b *testing.B) {
	buf := make([]byte, 16)
	for i := 0; i < b.N; i++ {
		_ = WriteUint(buf, uint64(i), i%8, 40)
	}
}
