// Package wstransport provides the exactly-n-byte read / unlimited write
// contract every higher layer is written against, so frame parsing never
// spins on partial input and never speculates past a frame boundary.
package wstransport

import (
	"bufio"
	"bytes"
	"io"
	"net"

	"github.com/pkg/errors"
)

// ErrConnectionTerminated is the sentinel cause wrapped into every
// terminated-connection signal. Callers should use errors.Is to test for it.
// The underlying I/O error is not kept as a cause; only its text appears in
// the wrapping message.
var ErrConnectionTerminated = errors.New("wstransport: connection terminated")

// Transport is the exactly-n-byte read / unlimited write contract every
// codec is written against. No timeout is defined here; an upstream
// idle-timeout policy may interrupt Read/Write by closing the underlying
// connection.
type Transport struct {
	conn   net.Conn
	reader *bufio.Reader
	peer   string
}

// New wraps conn, reusing any bytes already buffered in pre (e.g. by an
// http.Hijacker) ahead of further reads from conn.
func New(conn net.Conn, pre *bufio.Reader) *Transport {
	t := &Transport{conn: conn, peer: conn.RemoteAddr().String()}
	if pre != nil {
		t.reader = pre
	} else {
		t.reader = bufio.NewReaderSize(conn, 4096)
	}
	return t
}

// Conn returns the underlying net.Conn, for callers that need to close it or
// inspect its address.
func (t *Transport) Conn() net.Conn { return t.conn }

// ReadExact returns exactly n bytes, retrying partial reads, or signals
// ErrConnectionTerminated if end-of-stream arrives first.
func (t *Transport) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		return nil, errors.Wrapf(ErrConnectionTerminated, "read_exact(%d) from %s: %v", n, t.peer, err)
	}
	return buf, nil
}

// ReadUntil returns all bytes up to but excluding delimiter, consuming the
// delimiter itself. Used only by the legacy byte-delimited framer.
func (t *Transport) ReadUntil(delimiter byte) ([]byte, error) {
	data, err := t.reader.ReadBytes(delimiter)
	if err != nil {
		return nil, errors.Wrapf(ErrConnectionTerminated, "read_until(%#x) from %s: %v", delimiter, t.peer, err)
	}
	return bytes.TrimSuffix(data, []byte{delimiter}), nil
}

// WriteAll writes all of data, signalling ErrConnectionTerminated (annotated
// with the peer address for diagnosability) on any transport failure.
func (t *Transport) WriteAll(data []byte) error {
	if _, err := t.conn.Write(data); err != nil {
		return errors.Wrapf(ErrConnectionTerminated, "write_all to %s: %v", t.peer, err)
	}
	return nil
}

// Peer returns the remote address string used in error annotations.
func (t *Transport) Peer() string { return t.peer }

// Close closes the underlying connection.
func (t *Transport) Close() error { return t.conn.Close() }
