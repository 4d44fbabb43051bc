package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 1024, ^uint64(0)} {
		assert.Equal(t, v, DecodeUint64(EncodeUint64(v)))
	}
}

func TestUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 1024, ^uint32(0)} {
		assert.Equal(t, v, DecodeUint32(EncodeUint32(v)))
	}
}

func TestDecodeUint64ShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, uint64(0), DecodeUint64(nil))
	assert.Equal(t, uint64(0), DecodeUint64(make([]byte, 7)))
}

func TestDecodeUint32ShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, uint32(0), DecodeUint32(nil))
	assert.Equal(t, uint32(0), DecodeUint32(make([]byte, 3)))
}
