package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInt_OutOfRange(t *testing.T) {
	_, ok := extractInt([]byte{1, 2}, 0, 4, Big, false)
	assert.False(t, ok)
}

func TestExtractInt_InRange(t *testing.T) {
	v, ok := extractInt([]byte{0x00, 0x00, 0x01, 0x00}, 0, 4, Big, false)
	require.True(t, ok)
	assert.EqualValues(t, 256, v)
}

func TestExtractPascalString(t *testing.T) {
	buf := []byte{5, 'h', 'e', 'l', 'l', 'o', 'X'}
	payload, consumed, ok := extractPascalString(buf, 0, 1, Big)
	require.True(t, ok)
	assert.Equal(t, "hello", string(payload))
	assert.EqualValues(t, 6, consumed)
}

func TestExtractPascalString_TruncatedPayload(t *testing.T) {
	buf := []byte{5, 'h', 'i'}
	_, _, ok := extractPascalString(buf, 0, 1, Big)
	assert.False(t, ok)
}

func TestExtractUTF16_BigEndianExample(t *testing.T) {
	// §8: [0x01,'a',0x02,'b'] under bestring16 decodes to U+0161, U+0262.
	buf := []byte{0x01, 'a', 0x02, 'b'}
	s, consumed, ok := extractUTF16(buf, 0, 2, Big)
	require.True(t, ok)
	assert.EqualValues(t, 4, consumed)
	assert.Equal(t, "šɢ", s)
}

func TestExtractFloat32(t *testing.T) {
	// 1.0f big-endian is 0x3F800000.
	buf := []byte{0x3F, 0x80, 0x00, 0x00}
	f, ok := extractFloat32(buf, 0, Big)
	require.True(t, ok)
	assert.Equal(t, float32(1.0), f)
}
