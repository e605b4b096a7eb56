package wstransport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T) (client, server *Transport) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	return New(c1, nil), New(c2, nil)
}

func TestReadExact(t *testing.T) {
	client, server := pipePair(t)
	go func() { _ = client.WriteAll([]byte("hello world")) }()

	got, err := server.ReadExact(5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	got, err = server.ReadExact(6)
	require.NoError(t, err)
	require.Equal(t, []byte(" world"), got)
}

func TestReadExact_ConnectionClosed(t *testing.T) {
	client, server := pipePair(t)
	client.Close()

	_, err := server.ReadExact(4)
	require.ErrorIs(t, err, ErrConnectionTerminated)
}

func TestReadUntil(t *testing.T) {
	client, server := pipePair(t)
	go func() { _ = client.WriteAll([]byte("abc\xffdef")) }()

	got, err := server.ReadUntil(0xFF)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)

	rest, err := server.ReadExact(3)
	require.NoError(t, err)
	require.Equal(t, []byte("def"), rest)
}

func TestWriteAll_AfterClose(t *testing.T) {
	client, server := pipePair(t)
	server.Close()
	client.Close()

	err := client.WriteAll([]byte("x"))
	require.ErrorIs(t, err, ErrConnectionTerminated)
}

func TestPeer(t *testing.T) {
	client, _ := pipePair(t)
	require.NotEmpty(t, client.Peer())
}
