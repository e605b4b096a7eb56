package wsframe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepeatedXorRoundTrip(t *testing.T) {
	key := []byte{0x01, 0x02, 0x03, 0x04}
	data := []byte("the quick brown fox jumps over the lazy dog")
	original := append([]byte(nil), data...)

	NewRepeatedXor(key).Mask(data)
	require.NotEqual(t, original, data)

	NewRepeatedXor(key).Mask(data)
	require.Equal(t, original, data)
}

func TestRepeatedXorCyclePersistsAcrossCalls(t *testing.T) {
	key := []byte{0xFF, 0x00, 0xAA}
	data := []byte("0123456789")
	whole := append([]byte(nil), data...)

	// Masking the whole payload in one call must equal masking it split
	// across two calls on one masker, since the cycle position must persist
	// between calls on the same masker.
	NewRepeatedXor(key).Mask(whole)

	split := append([]byte(nil), data...)
	m := NewRepeatedXor(key)
	m.Mask(split[:4])
	m.Mask(split[4:])

	require.Equal(t, whole, split)
}

func TestRepeatedXor4(t *testing.T) {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	data := []byte("abcdefgh")
	original := append([]byte(nil), data...)

	NewRepeatedXor4(key).Mask(data)
	require.NotEqual(t, original, data)
	NewRepeatedXor4(key).Mask(data)
	require.Equal(t, original, data)
}

func TestRepeatedXorReset(t *testing.T) {
	m := NewRepeatedXor([]byte{0x01})
	data := []byte{0xAA}
	m.Mask(data)

	m.Reset([]byte{0x02})
	data2 := []byte{0xAA}
	m.Mask(data2)
	require.Equal(t, byte(0xAA^0x02), data2[0])
}
