// Package frame builds and parses protocol frames from the block
// templates of a specification document. A frame is a tree of blocks
// and fields; construction walks templates top-down, consuming raw
// bytes left to right, and serialization walks the finished tree in
// the same order.
package frame

import (
	"github.com/trameio/trame/pkg/bytecodec"
)

// Node is one item of a block: either a *Field leaf or a nested
// *Block.
type Node interface {
	Name() string
	Len() int
	Bytes() []byte
}

// Field is a named, sized leaf byte value. The declared size governs
// the value at construction; later SetValue calls replace the value
// as-is, resizing is the caller's responsibility.
type Field struct {
	name  string
	size  int
	value []byte
}

// NewField creates a field, truncating value to the declared size. A
// declared size of 0 means unbounded.
func NewField(name string, size int, value []byte) *Field {
	if size > 0 && len(value) > size {
		value = value[:size]
	}
	return &Field{
		name:  name,
		size:  size,
		value: append([]byte(nil), value...),
	}
}

func (f *Field) Name() string { return f.name }

// DeclaredSize is the byte count from the item template, 0 when
// unbounded.
func (f *Field) DeclaredSize() int { return f.size }

// Len is the current value length, which may differ from the declared
// size transiently during construction or after a manual SetValue.
func (f *Field) Len() int { return len(f.value) }

func (f *Field) Bytes() []byte {
	return append([]byte(nil), f.value...)
}

// SetValue replaces the current value without resizing.
func (f *Field) SetValue(v []byte) {
	f.value = append([]byte(nil), v...)
}

// SetUint stores v resized to the declared size, or minimal width when
// the field is unbounded.
func (f *Field) SetUint(v uint64, o bytecodec.Order) {
	f.value = bytecodec.IntToBytes(v, f.size, o)
}

// Uint reads the current value as an integer.
func (f *Field) Uint(o bytecodec.Order) (uint64, error) {
	return bytecodec.BytesToInt(f.value, o)
}
