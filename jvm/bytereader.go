package jvm

import (
	"encoding/binary"
	"fmt"
)

// readNAsUint extracts an n-byte (n in {1,2,4}) big-endian unsigned value
// from buf at off and returns it along with the offset past the value.
func readNAsUint(buf []byte, off, n int) (uint32, int, error) {
	if off+n > len(buf) {
		return 0, off, newFatal(errDecode, fmt.Sprintf("read past end of buffer at offset %d (need %d bytes, have %d)", off, n, len(buf)-off))
	}
	switch n {
	case 1:
		return uint32(buf[off]), off + 1, nil
	case 2:
		return uint32(binary.BigEndian.Uint16(buf[off : off+2])), off + 2, nil
	case 4:
		return binary.BigEndian.Uint32(buf[off : off+4]), off + 4, nil
	default:
		return 0, off, newFatal(errDecode, fmt.Sprintf("unsupported read width %d", n))
	}
}

// readNAsBytes extracts n raw bytes from buf at off.
func readNAsBytes(buf []byte, off, n int) ([]byte, int, error) {
	if off+n > len(buf) {
		return nil, off, newFatal(errDecode, fmt.Sprintf("read past end of buffer at offset %d (need %d bytes, have %d)", off, n, len(buf)-off))
	}
	out := make([]byte, n)
	copy(out, buf[off:off+n])
	return out, off + n, nil
}
