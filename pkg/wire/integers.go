package wire

import "encoding/binary"

// EncodeUint64 encodes v as 8 big-endian bytes.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 decodes the first 8 bytes of buf as big-endian. Short input
// returns 0 rather than panicking — the caller has already validated the
// declared body length before calling this, so a short slice here means a
// malformed reply, not a programming error worth crashing over.
func DecodeUint64(buf []byte) uint64 {
	if len(buf) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf[:8])
}

// EncodeUint32 encodes v as 4 big-endian bytes.
func EncodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeUint32 decodes the first 4 bytes of buf as big-endian, returning 0
// on short input (see DecodeUint64).
func DecodeUint32(buf []byte) uint32 {
	if len(buf) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:4])
}
