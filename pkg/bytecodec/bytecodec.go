// Package bytecodec provides the low-level conversion primitives the
// frame builder is made of: byte-order-aware integer conversion,
// padding and truncation, bit-list conversion and the protocol address
// encodings (IPv4, MAC, packed station addresses).
//
// Every function takes an explicit Order. Callers that want an ambient
// default hold a Codec value instead of mutating package state:
//
//	c := bytecodec.Codec{Order: bytecodec.LittleEndian}
//	b := c.IntToBytes(1234, 2)
package bytecodec

import (
	"errors"
	"fmt"
	"math/bits"
)

// Order selects big- or little-endian interpretation for conversions.
type Order int

const (
	BigEndian Order = iota
	LittleEndian
)

func (o Order) String() string {
	switch o {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder converts the textual form found in protocol specification
// documents ("big" or "little") to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "big":
		return BigEndian, nil
	case "little":
		return LittleEndian, nil
	}
	return 0, fmt.Errorf("%w: %q (want \"big\" or \"little\")", ErrOrder, s)
}

var (
	// ErrOrder reports an invalid byte order argument.
	ErrOrder = errors.New("bytecodec: invalid byte order")
	// ErrKind reports an input of the wrong semantic kind.
	ErrKind = errors.New("bytecodec: unsupported input kind")
	// ErrOverflow reports a byte sequence whose integer value does not
	// fit in a uint64.
	ErrOverflow = errors.New("bytecodec: value overflows uint64")
	// ErrBitCount reports a bit list whose length is not a multiple of 8.
	ErrBitCount = errors.New("bytecodec: bit list length is not a multiple of 8")
)

// SizeOf returns the number of bytes its argument fits into: the length
// of a byte sequence, or the minimal width of a non-negative integer.
// Any other kind of input is a programming error.
func SizeOf(v any) (int, error) {
	switch v := v.(type) {
	case []byte:
		return len(v), nil
	case uint64:
		return (bits.Len64(v) + 7) / 8, nil
	case uint:
		return (bits.Len64(uint64(v)) + 7) / 8, nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative integer %d", ErrKind, v)
		}
		return (bits.Len64(uint64(v)) + 7) / 8, nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative integer %d", ErrKind, v)
		}
		return (bits.Len64(uint64(v)) + 7) / 8, nil
	}
	return 0, fmt.Errorf("%w: %T (want bytes or non-negative integer)", ErrKind, v)
}

// Resize pads or truncates b to exactly size bytes and returns a new
// slice. Big endian pads and truncates at the most-significant (low
// address) end: truncation keeps the trailing bytes, padding prepends
// zeros. Little endian mirrors that. A negative size is treated as 0.
func Resize(b []byte, size int, o Order) []byte {
	if size < 0 {
		size = 0
	}
	out := make([]byte, size)
	switch {
	case size < len(b):
		if o == BigEndian {
			copy(out, b[len(b)-size:])
		} else {
			copy(out, b[:size])
		}
	case size > len(b):
		if o == BigEndian {
			copy(out[size-len(b):], b)
		} else {
			copy(out, b)
		}
	default:
		copy(out, b)
	}
	return out
}

// IntToBytes converts v to its minimal big- or little-endian byte
// representation, then resizes it to size bytes if size is non-zero.
// The zero value with no explicit size encodes as a single zero byte,
// never as an empty sequence.
func IntToBytes(v uint64, size int, o Order) []byte {
	width := (bits.Len64(v) + 7) / 8
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		if o == BigEndian {
			b[width-1-i] = byte(v >> (8 * i))
		} else {
			b[i] = byte(v >> (8 * i))
		}
	}
	if size == 0 {
		if width == 0 {
			size = 1
		} else {
			size = width
		}
	}
	return Resize(b, size, o)
}

// BytesToInt is the inverse of IntToBytes. It accepts sequences longer
// than 8 bytes as long as the extra bytes are zero padding for the
// given order.
func BytesToInt(b []byte, o Order) (uint64, error) {
	if o == LittleEndian {
		rev := make([]byte, len(b))
		for i, by := range b {
			rev[len(b)-1-i] = by
		}
		b = rev
	}
	for len(b) > 8 {
		if b[0] != 0 {
			return 0, fmt.Errorf("%w: %d significant bytes", ErrOverflow, len(b))
		}
		b = b[1:]
	}
	var n uint64
	for _, by := range b {
		n = n<<8 | uint64(by)
	}
	return n, nil
}

// Codec bundles a default byte order so call sites can omit it. The
// zero value uses big endian. Copy it by value; there is no shared
// mutable state behind it.
type Codec struct {
	Order Order
}

func (c Codec) SizeOf(v any) (int, error) { return SizeOf(v) }

func (c Codec) Resize(b []byte, size int) []byte {
	return Resize(b, size, c.Order)
}
func (c Codec) IntToBytes(v uint64, size int) []byte {
	return IntToBytes(v, size, c.Order)
}
func (c Codec) BytesToInt(b []byte) (uint64, error) {
	return BytesToInt(b, c.Order)
}
func (c Codec) IntToBits(v uint64, width int) []uint8 {
	return IntToBits(v, width, c.Order)
}
func (c Codec) BitsToInt(bits []uint8) uint64 {
	return BitsToInt(bits, c.Order)
}
func (c Codec) BytesToBits(b []byte) []uint8 {
	return BytesToBits(b, c.Order)
}
func (c Codec) BitsToBytes(bits []uint8) ([]byte, error) {
	return BitsToBytes(bits, c.Order)
}
