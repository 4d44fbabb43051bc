package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadUnpadRoundTrip(t *testing.T) {
	cases := []struct {
		s string
		n int
	}{
		{"group1", 16},
		{"", 16},
		{"exact6", 6},
	}
	for _, c := range cases {
		buf := PadString(c.s, c.n)
		assert.Len(t, buf, c.n)
		assert.Equal(t, c.s, UnpadString(buf))
	}
}

func TestPadStringTruncatesOverLongInput(t *testing.T) {
	buf := PadString("this-is-way-too-long", 6)
	assert.Len(t, buf, 6)
	assert.Equal(t, "this-i", UnpadString(buf))
}

func TestUnpadStringAllZero(t *testing.T) {
	assert.Equal(t, "", UnpadString(make([]byte, 16)))
	assert.Equal(t, "", UnpadString(nil))
}

func TestUnpadStringKeepsEmbeddedZeroBeforeLastNonZero(t *testing.T) {
	buf := make([]byte, 10)
	copy(buf, "ab")
	buf[5] = 'x'
	assert.Equal(t, "ab\x00\x00\x00x", UnpadString(buf))
}
