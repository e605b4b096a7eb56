package wsmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelIDRoundTrip(t *testing.T) {
	ids := []uint32{0, 1, 127, 128, 16383, 16384, 1<<21 - 1, 1 << 21, MaxChannelID}
	for _, id := range ids {
		encoded, err := EncodeChannelID(id)
		require.NoError(t, err)

		decoded, n, err := DecodeChannelID(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, id, decoded)
	}
}

func TestChannelIDEncodingLength(t *testing.T) {
	cases := []struct {
		id     uint32
		length int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{1<<21 - 1, 3},
		{1 << 21, 4},
		{MaxChannelID, 4},
	}
	for _, tc := range cases {
		encoded, err := EncodeChannelID(tc.id)
		require.NoError(t, err)
		require.Lenf(t, encoded, tc.length, "id %d", tc.id)
	}
}

func TestChannelIDOutOfRange(t *testing.T) {
	_, err := EncodeChannelID(MaxChannelID + 1)
	require.ErrorIs(t, err, ErrChannelIDRange)
}

func TestDecodeChannelIDTruncated(t *testing.T) {
	cases := [][]byte{
		{},
		{0x80},       // 2-byte form, only 1 byte present
		{0xC0},       // 3-byte form, only 1 byte present
		{0xC0, 0x00}, // 3-byte form, only 2 bytes present
		{0xE0, 0x00, 0x00}, // 4-byte form, only 3 bytes present
	}
	for _, c := range cases {
		_, _, err := DecodeChannelID(c)
		require.ErrorIs(t, err, ErrShortChannelID)
	}
}
