package wsmux

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pepnova/wsengine/internal/wsframe"
	"github.com/pepnova/wsengine/internal/wstransport"
)

func newMuxPair(t *testing.T, onAdd AddChannelCallback) (client *wstransport.Transport, codec wsframe.Codec, demux *Demultiplexer) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	client = wstransport.New(c1, nil)
	server := wstransport.New(c2, nil)
	codec = wsframe.New(wsframe.HyBiLatest, nil)
	demux = New(server, codec, onAdd, nil)
	go demux.Run()
	return client, codec, demux
}

func writePhysicalBinary(t *testing.T, transport *wstransport.Transport, codec wsframe.Codec, payload []byte) {
	t.Helper()
	table := wsframe.Opcodes(wsframe.HyBiLatest)
	err := codec.WriteFrame(transport, wsframe.Frame{Opcode: table.Binary, Fin: true, Payload: payload})
	require.NoError(t, err)
}

func readPhysicalBinary(t *testing.T, transport *wstransport.Transport, codec wsframe.Codec) []byte {
	t.Helper()
	f, err := codec.ReadFrame(transport)
	require.NoError(t, err)
	return f.Payload
}

func TestDemultiplexerDeliversDefaultChannelData(t *testing.T) {
	client, codec, demux := newMuxPair(t, nil)

	idBytes, err := EncodeChannelID(DefaultChannelID)
	require.NoError(t, err)
	writePhysicalBinary(t, client, codec, append(idBytes, []byte("hello")...))

	lc, ok := demux.Channel(DefaultChannelID)
	require.True(t, ok)

	msg, ok, err := lc.ReceiveMessage()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", msg)
}

func TestDemultiplexerAddChannelRequest(t *testing.T) {
	opened := make(chan *LogicalChannel, 1)
	onAdd := func(encodedHandshakeRequest []byte) ([]byte, bool, func(lc *LogicalChannel)) {
		require.Equal(t, "GET /chat HTTP/1.1\r\n\r\n", string(encodedHandshakeRequest))
		return []byte("ack"), true, func(lc *LogicalChannel) {
			opened <- lc
			_ = lc.SendMessage([]byte("welcome"), true)
		}
	}
	client, codec, _ := newMuxPair(t, onAdd)

	req := ControlBlock{
		ObjectiveChannelID: 5,
		Opcode:             OpcodeAddChannelRequest,
		Value:              []byte("GET /chat HTTP/1.1\r\n\r\n"),
	}
	encoded, err := EncodeControlBlock(req)
	require.NoError(t, err)
	controlIDBytes, err := EncodeChannelID(ControlChannelID)
	require.NoError(t, err)
	writePhysicalBinary(t, client, codec, append(controlIDBytes, encoded...))

	select {
	case lc := <-opened:
		require.Equal(t, uint32(5), lc.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for onOpen")
	}

	// Two frames arrive on the physical connection in some order: the
	// AddChannelResponse control block on channel 0, and the "welcome" data
	// frame on channel 5.
	var sawResponse, sawData bool
	for i := 0; i < 2; i++ {
		payload := readPhysicalBinary(t, client, codec)
		channelID, n, err := DecodeChannelID(payload)
		require.NoError(t, err)
		rest := payload[n:]

		if channelID == ControlChannelID {
			cb, _, err := DecodeControlBlock(rest)
			require.NoError(t, err)
			require.Equal(t, OpcodeAddChannelResponse, cb.Opcode)
			require.Equal(t, uint32(5), cb.ObjectiveChannelID)
			require.Equal(t, []byte("ack"), cb.Value)
			require.Equal(t, byte(0), cb.Flags&0x04) // rejected bit clear
			sawResponse = true
		} else {
			require.Equal(t, uint32(5), channelID)
			require.Equal(t, "welcome", string(rest))
			sawData = true
		}
	}
	require.True(t, sawResponse)
	require.True(t, sawData)
}

func TestDemultiplexerDropChannel(t *testing.T) {
	client, codec, demux := newMuxPair(t, nil)

	lc, ok := demux.Channel(DefaultChannelID)
	require.True(t, ok)

	drop := ControlBlock{ObjectiveChannelID: DefaultChannelID, Opcode: OpcodeDropChannel}
	encoded, err := EncodeControlBlock(drop)
	require.NoError(t, err)
	controlIDBytes, err := EncodeChannelID(ControlChannelID)
	require.NoError(t, err)
	writePhysicalBinary(t, client, codec, append(controlIDBytes, encoded...))

	done := make(chan bool, 1)
	go func() {
		_, ok, _ := lc.ReceiveMessage()
		done <- ok
	}()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
