package bytecodec

// Bit-list conversions. A bit list holds one 0/1 entry per bit; with
// BigEndian the most-significant bit comes first, with LittleEndian it
// comes last. The station address codec uses these to express its 4/4
// and 5/3 bit splits declaratively instead of through shift chains.

// IntToBits returns the low width bits of v as a bit list.
func IntToBits(v uint64, width int, o Order) []uint8 {
	out := make([]uint8, width)
	for i := 0; i < width; i++ {
		bit := uint8(v >> i & 1)
		if o == BigEndian {
			out[width-1-i] = bit
		} else {
			out[i] = bit
		}
	}
	return out
}

// BitsToInt is the inverse of IntToBits.
func BitsToInt(bits []uint8, o Order) uint64 {
	var n uint64
	if o == BigEndian {
		for _, b := range bits {
			n = n<<1 | uint64(b&1)
		}
		return n
	}
	for i := len(bits) - 1; i >= 0; i-- {
		n = n<<1 | uint64(bits[i]&1)
	}
	return n
}

// BytesToBits expands b into a bit list of length 8*len(b). The little
// endian list is the exact reversal of the big endian one, so
// BitsToBytes inverts it for either order.
func BytesToBits(b []byte, o Order) []uint8 {
	out := make([]uint8, 0, len(b)*8)
	for _, by := range b {
		for i := 7; i >= 0; i-- {
			out = append(out, uint8(by>>i&1))
		}
	}
	if o == LittleEndian {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// BitsToBytes packs a bit list back into bytes. The list length must be
// a multiple of 8.
func BitsToBytes(bits []uint8, o Order) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, ErrBitCount
	}
	if o == LittleEndian {
		rev := make([]uint8, len(bits))
		for i, b := range bits {
			rev[len(bits)-1-i] = b
		}
		bits = rev
	}
	out := make([]byte, len(bits)/8)
	for i := range out {
		var by byte
		for _, b := range bits[i*8 : i*8+8] {
			by = by<<1 | b&1
		}
		out[i] = by
	}
	return out, nil
}
