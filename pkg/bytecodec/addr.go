package bytecodec

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Address encodings used by the protocol specification documents:
// byte-per-octet IPv4, colon-hex MAC, and the packed two-byte station
// address of the building-automation bus. Station addresses come in two
// variants sharing the same wire size:
//
//	individual X.Y.Z: X and Y take 4 bits each of byte 1, Z is byte 2
//	group      X/Y/Z: X takes 5 bits, Y 3 bits of byte 1, Z is byte 2

// IPv4ToBytes converts a dotted-decimal address to its 4-byte form.
func IPv4ToBytes(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", ErrKind, s)
	}
	b := addr.As4()
	return b[:], nil
}

// BytesToIPv4 converts a 4-byte sequence to dotted-decimal form.
func BytesToIPv4(b []byte) (string, error) {
	if len(b) != 4 {
		return "", fmt.Errorf("%w: IPv4 address needs 4 bytes, got %d", ErrKind, len(b))
	}
	return netip.AddrFrom4([4]byte(b)).String(), nil
}

// MACToBytes converts a colon-hex MAC address to its 6-byte form.
func MACToBytes(s string) ([]byte, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a MAC address", ErrKind, s)
	}
	return []byte(hw), nil
}

// BytesToMAC converts a byte sequence to lower-case colon-hex form.
func BytesToMAC(b []byte) string {
	return net.HardwareAddr(b).String()
}

// stationChunk is the bit width of X in the first address byte.
func stationChunk(group bool) (chunk int, sep string) {
	if group {
		return 5, "/"
	}
	return 4, "."
}

// StationToBytes packs a textual station address into its two-byte wire
// form. The individual variant reads "X.Y.Z", the group variant
// "X/Y/Z". Components larger than their bit width are truncated to it,
// matching the wire packing. The layout is a fixed bit field, so no
// byte order applies; the bit-list route always runs most-significant
// bit first.
func StationToBytes(addr string, group bool) ([]byte, error) {
	chunk, sep := stationChunk(group)
	parts := strings.Split(addr, sep)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q is not a station address (want X%sY%sZ)", ErrKind, addr, sep, sep)
	}
	n := make([]uint64, 3)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a station address", ErrKind, addr)
		}
		n[i] = v
	}
	bits := append(IntToBits(n[0], chunk, BigEndian), IntToBits(n[1], 8-chunk, BigEndian)...)
	first, err := BitsToBytes(bits, BigEndian)
	if err != nil {
		return nil, err
	}
	return append(first, IntToBytes(n[2], 1, BigEndian)...), nil
}

// BytesToStation unpacks a two-byte station address into its textual
// form. An empty input means "no value" and reports ok=false rather
// than an error.
func BytesToStation(b []byte, group bool) (addr string, ok bool) {
	if len(b) == 0 {
		return "", false
	}
	chunk, sep := stationChunk(group)
	bits := BytesToBits(b[:1], BigEndian)
	x := BitsToInt(bits[:chunk], BigEndian)
	y := BitsToInt(bits[chunk:], BigEndian)
	var z uint64
	if len(b) > 1 {
		z, _ = BytesToInt(b[1:2], BigEndian)
	}
	return fmt.Sprintf("%d%s%d%s%d", x, sep, y, sep, z), true
}
