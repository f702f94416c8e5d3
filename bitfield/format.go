package bitfield

import (
	"fmt"

	"github.com/ska-sa/spead/errs"
)

// Format-string constants.
const (
	// FormatEntryLen is the wire size of one format entry: a one-byte type
	// code followed by a 24-bit big-endian bit width.
	FormatEntryLen = 4

	// MaxFormatEntries bounds the number of entries a format may carry.
	MaxFormatEntries = 256
)

// Type codes accepted in format entries.
const (
	TypeUint  = 'u' // unsigned integer, 1-64 bits
	TypeInt   = 'i' // signed integer, 1-64 bits
	TypeFloat = 'f' // IEEE-754 float, 32 or 64 bits
	TypeChar  = 'c' // single byte, exactly 8 bits
)

// Field is one decoded format entry.
type Field struct {
	Type byte
	Bits int
}

// Format is a validated sequence of fields. One repetition of the format
// unpacks to one value per field.
type Format struct {
	fields     []Field
	bitsPerRep int
}

// ParseFormat validates and decodes a raw format string.
//
// Each entry occupies FormatEntryLen bytes: the type code in byte 0 and the
// bit width big-endian in bytes 1-3. Width rules: 'f' requires 32 or 64,
// 'c' requires 8, 'u' and 'i' accept 1-64.
//
// Returns:
//   - Format: The decoded format
//   - error: errs.ErrFormatInvalid describing the offending entry
func ParseFormat(raw []byte) (Format, error) {
	if len(raw) == 0 || len(raw)%FormatEntryLen != 0 {
		return Format{}, fmt.Errorf("%w: length %d not a positive multiple of %d",
			errs.ErrFormatInvalid, len(raw), FormatEntryLen)
	}

	n := len(raw) / FormatEntryLen
	if n > MaxFormatEntries {
		return Format{}, fmt.Errorf("%w: %d entries exceeds max %d",
			errs.ErrFormatInvalid, n, MaxFormatEntries)
	}

	f := Format{fields: make([]Field, 0, n)}
	for i := 0; i < n; i++ {
		e := raw[i*FormatEntryLen : (i+1)*FormatEntryLen]
		typ := e[0]
		bits := int(e[1])<<16 | int(e[2])<<8 | int(e[3])

		switch typ {
		case TypeUint, TypeInt:
			if bits < 1 || bits > MaxWidth {
				return Format{}, fmt.Errorf("%w: entry %d: %c width %d",
					errs.ErrFormatInvalid, i, typ, bits)
			}
		case TypeFloat:
			if bits != 32 && bits != 64 {
				return Format{}, fmt.Errorf("%w: entry %d: float width %d",
					errs.ErrFormatInvalid, i, bits)
			}
		case TypeChar:
			if bits != 8 {
				return Format{}, fmt.Errorf("%w: entry %d: char width %d",
					errs.ErrFormatInvalid, i, bits)
			}
		default:
			return Format{}, fmt.Errorf("%w: entry %d: type %q",
				errs.ErrFormatInvalid, i, typ)
		}

		f.fields = append(f.fields, Field{Type: typ, Bits: bits})
		f.bitsPerRep += bits
	}

	return f, nil
}

// Fields returns the decoded format entries.
func (f Format) Fields() []Field { return f.fields }

// BitsPerRepeat returns the total bit width of one repetition.
func (f Format) BitsPerRepeat() int { return f.bitsPerRep }

// Unpack decodes count repetitions of the format from data, starting at
// sub-byte bit offset off (0-7). Each repetition yields one value per field:
// uint64 for 'u', int64 for 'i', float32/float64 for 'f', byte for 'c'.
//
// A count of -1 decodes as many whole repetitions as fit in data.
//
// Returns:
//   - [][]any: count slices, one value per format field
//   - error: errs.ErrFormatInvalid for a bad offset,
//     errs.ErrBufferTooSmall if data cannot hold count repetitions
func (f Format) Unpack(data []byte, count, off int) ([][]any, error) {
	if off < 0 || off >= 8 {
		return nil, fmt.Errorf("%w: bit offset %d outside [0,8)", errs.ErrFormatInvalid, off)
	}
	if f.bitsPerRep == 0 {
		return nil, fmt.Errorf("%w: empty format", errs.ErrFormatInvalid)
	}

	if count < 0 {
		count = (len(data)*8 - off) / f.bitsPerRep
	}
	if count*f.bitsPerRep+off > len(data)*8 {
		return nil, fmt.Errorf("%w: %d repetitions need %d bits, have %d",
			errs.ErrBufferTooSmall, count, count*f.bitsPerRep+off, len(data)*8)
	}

	out := make([][]any, count)
	pos := off
	for rep := 0; rep < count; rep++ {
		vals := make([]any, len(f.fields))
		for i, fld := range f.fields {
			switch fld.Type {
			case TypeUint:
				v, err := ReadUint(data, pos, fld.Bits)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			case TypeInt:
				v, err := ReadInt(data, pos, fld.Bits)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			case TypeFloat:
				if fld.Bits == 32 {
					v, err := ReadFloat32(data, pos)
					if err != nil {
						return nil, err
					}
					vals[i] = v
				} else {
					v, err := ReadFloat64(data, pos)
					if err != nil {
						return nil, err
					}
					vals[i] = v
				}
			case TypeChar:
				v, err := ReadUint(data, pos, 8)
				if err != nil {
					return nil, err
				}
				vals[i] = byte(v)
			}
			pos += fld.Bits
		}
		out[rep] = vals
	}

	return out, nil
}

// Pack encodes repetitions of the format into a fresh byte slice, starting at
// sub-byte bit offset off (0-7). Each inner slice supplies one value per
// format field; integer kinds are converted to the field's width, and 'c'
// accepts byte or a one-byte string.
//
// Returns:
//   - []byte: The packed bytes, ceil((off + reps*bits)/8) long
//   - error: errs.ErrFormatInvalid for a bad offset or ragged repetition,
//     errs.ErrValueTypeMismatch for an unconvertible value
func (f Format) Pack(values [][]any, off int) ([]byte, error) {
	if off < 0 || off >= 8 {
		return nil, fmt.Errorf("%w: bit offset %d outside [0,8)", errs.ErrFormatInvalid, off)
	}

	totalBits := off + len(values)*f.bitsPerRep
	out := make([]byte, (totalBits+7)/8)

	pos := off
	for rep, vals := range values {
		if len(vals) != len(f.fields) {
			return nil, fmt.Errorf("%w: repetition %d has %d values, format has %d fields",
				errs.ErrFormatInvalid, rep, len(vals), len(f.fields))
		}

		for i, fld := range f.fields {
			var err error
			switch fld.Type {
			case TypeUint:
				var u uint64
				u, err = coerceUint(vals[i])
				if err == nil {
					err = WriteUint(out, u, pos, fld.Bits)
				}
			case TypeInt:
				var s int64
				s, err = coerceInt(vals[i])
				if err == nil {
					err = WriteInt(out, s, pos, fld.Bits)
				}
			case TypeFloat:
				var d float64
				d, err = coerceFloat(vals[i])
				if err == nil {
					if fld.Bits == 32 {
						err = WriteFloat32(out, float32(d), pos)
					} else {
						err = WriteFloat64(out, d, pos)
					}
				}
			case TypeChar:
				var c byte
				c, err = coerceChar(vals[i])
				if err == nil {
					err = WriteUint(out, uint64(c), pos, 8)
				}
			}
			if err != nil {
				return nil, err
			}
			pos += fld.Bits
		}
	}

	return out, nil
}

// Unpack is a convenience wrapper: parse raw as a format and unpack data.
func Unpack(raw, data []byte, count, off int) ([][]any, error) {
	f, err := ParseFormat(raw)
	if err != nil {
		return nil, err
	}

	return f.Unpack(data, count, off)
}

// Pack is a convenience wrapper: parse raw as a format and pack values.
func Pack(raw []byte, values [][]any, off int) ([]byte, error) {
	f, err := ParseFormat(raw)
	if err != nil {
		return nil, err
	}

	return f.Pack(values, off)
}

func coerceUint(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("%w: negative value %d for 'u' field", errs.ErrValueTypeMismatch, x)
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, fmt.Errorf("%w: negative value %d for 'u' field", errs.ErrValueTypeMismatch, x)
		}
		return uint64(x), nil
	default:
		return 0, fmt.Errorf("%w: %T for 'u' field", errs.ErrValueTypeMismatch, v)
	}
}

func coerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("%w: %T for 'i' field", errs.ErrValueTypeMismatch, v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: %T for 'f' field", errs.ErrValueTypeMismatch, v)
	}
}

func coerceChar(v any) (byte, error) {
	switch x := v.(type) {
	case byte:
		return x, nil
	case string:
		if len(x) != 1 {
			return 0, fmt.Errorf("%w: %d-byte string for 'c' field", errs.ErrValueTypeMismatch, len(x))
		}
		return x[0], nil
	default:
		return 0, fmt.Errorf("%w: %T for 'c' field", errs.ErrValueTypeMismatch, v)
	}
}
