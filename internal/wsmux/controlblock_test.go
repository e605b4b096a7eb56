package wsmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControlBlockRoundTrip(t *testing.T) {
	cases := []ControlBlock{
		{ObjectiveChannelID: 1, Opcode: OpcodeAddChannelRequest, Flags: 0, Value: []byte("GET /chat HTTP/1.1\r\n\r\n")},
		{ObjectiveChannelID: 2, Opcode: OpcodeAddChannelResponse, Flags: 0x04, Value: nil},
		{ObjectiveChannelID: 0x1FFFFF, Opcode: OpcodeDropChannel, Flags: 0, Value: nil},
		{ObjectiveChannelID: 5, Opcode: OpcodeEncapsulatedControlFrame, Flags: 0, Value: make([]byte, 300)},
	}

	for _, cb := range cases {
		encoded, err := EncodeControlBlock(cb)
		require.NoError(t, err)

		decoded, n, err := DecodeControlBlock(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, cb.ObjectiveChannelID, decoded.ObjectiveChannelID)
		require.Equal(t, cb.Opcode, decoded.Opcode)
		require.Equal(t, cb.Flags, decoded.Flags)
		require.Equal(t, cb.Value, decoded.Value)
	}
}

func TestControlBlockLengthFieldSizeSelection(t *testing.T) {
	cases := []struct {
		valueLen int
		wantSize int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 3},
	}
	for _, tc := range cases {
		cb := ControlBlock{ObjectiveChannelID: 1, Opcode: OpcodeEncapsulatedControlFrame, Value: make([]byte, tc.valueLen)}
		encoded, err := EncodeControlBlock(cb)
		require.NoError(t, err)
		// 1-byte channel id, 1 opcode/flags/size byte, then the length field.
		require.Lenf(t, encoded, 1+1+tc.wantSize+tc.valueLen, "value length %d", tc.valueLen)

		decoded, _, err := DecodeControlBlock(encoded)
		require.NoError(t, err)
		require.Len(t, decoded.Value, tc.valueLen)
	}
}

func TestDecodeControlBlockTruncated(t *testing.T) {
	cb := ControlBlock{ObjectiveChannelID: 1, Opcode: OpcodeDropChannel, Value: []byte("reason")}
	encoded, err := EncodeControlBlock(cb)
	require.NoError(t, err)

	_, _, err = DecodeControlBlock(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, ErrTruncatedControlBlock)
}
