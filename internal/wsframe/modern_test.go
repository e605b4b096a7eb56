package wsframe

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pepnova/wsengine/internal/wstransport"
)

func pipeTransports(t *testing.T) (client, server *wstransport.Transport) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	return wstransport.New(c1, nil), wstransport.New(c2, nil)
}

func TestModernCodecRoundTrip_HyBiLatest(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"boundary-125", make([]byte, 125)},
		{"boundary-126", make([]byte, 126)},
		{"boundary-65535", make([]byte, 65535)},
		{"boundary-65536", make([]byte, 65536)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, server := pipeTransports(t)
			codec := New(HyBiLatest, nil)

			sent := Frame{Opcode: hybiLatestOpcodes.Text, Fin: true, Payload: tc.payload}
			errCh := make(chan error, 1)
			go func() { errCh <- codec.WriteFrame(client, sent) }()

			got, err := codec.ReadFrame(server)
			require.NoError(t, err)
			require.NoError(t, <-errCh)
			require.Equal(t, tc.payload, got.Payload)
			require.True(t, got.Fin)
			require.False(t, got.NonMinimalLength)
		})
	}
}

func TestModernCodecMasking_HyBiLatest(t *testing.T) {
	client, server := pipeTransports(t)
	codec := New(HyBiLatest, nil)

	sent := Frame{
		Opcode:     hybiLatestOpcodes.Text,
		Fin:        true,
		Masked:     true,
		MaskingKey: [4]byte{0x11, 0x22, 0x33, 0x44},
		Payload:    []byte("hello world"),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- codec.WriteFrame(client, sent) }()

	got, err := codec.ReadFrame(server)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, []byte("hello world"), got.Payload)
	require.True(t, got.Masked)
}

func TestModernCodecNonMinimalLength(t *testing.T) {
	client, server := pipeTransports(t)
	codec := New(HyBiLatest, nil)

	// Hand-build a frame that encodes a 10-byte payload using the 16-bit
	// length sentinel rather than the single-byte form. Decoders must
	// accept this and flag it rather than reject it outright.
	payload := []byte("0123456789")
	raw := []byte{0x81, 126, 0x00, 0x0A}
	raw = append(raw, payload...)

	errCh := make(chan error, 1)
	go func() {
		_, werr := client.Conn().Write(raw)
		errCh <- werr
	}()

	got, err := codec.ReadFrame(server)
	require.NoError(t, <-errCh)
	require.NoError(t, err)
	require.Equal(t, payload, got.Payload)
	require.True(t, got.NonMinimalLength)
}

func TestModernCodecHyBi06ImplicitMasking(t *testing.T) {
	client, server := pipeTransports(t)
	key := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	// writer and reader stand for the two ends of one hybi-06 connection:
	// each has its own masker over the same derived key, starting at cycle
	// position 0.
	writer := New(HyBi06, NewRepeatedXor(key))
	reader := New(HyBi06, NewRepeatedXor(key))

	sent := Frame{Opcode: hybi04Opcodes.Text, Fin: true, Payload: []byte("hybi06 payload")}
	errCh := make(chan error, 1)
	go func() { errCh <- writer.WriteFrame(client, sent) }()

	got, err := reader.ReadFrame(server)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, sent.Payload, got.Payload)
}
