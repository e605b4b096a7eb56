package wshandshake

import (
	"crypto/md5"
	"encoding/binary"
	"math/big"
)

// extractKeyNumber implements the Sec-WebSocket-Key1/Key2 extraction rule:
// concatenate all decimal digits into a non-negative integer, count space
// characters, and divide (exactly) the former by the latter.
func extractKeyNumber(raw string) (uint32, error) {
	var digits []byte
	spaces := 0
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ' ':
			spaces++
		}
	}
	if spaces == 0 {
		return 0, fail("key %q has no space characters", raw)
	}
	if len(digits) == 0 {
		return 0, fail("key %q has no digits", raw)
	}

	n, ok := new(big.Int).SetString(string(digits), 10)
	if !ok {
		return 0, fail("key %q digits do not parse", raw)
	}

	quot, rem := new(big.Int), new(big.Int)
	quot.QuoRem(n, big.NewInt(int64(spaces)), rem)
	if rem.Sign() != 0 {
		return 0, fail("key %q digits do not evenly divide by %d spaces", raw, spaces)
	}
	if !quot.IsUint64() || quot.Uint64() > 0xFFFFFFFF {
		return 0, fail("key %q number out of range", raw)
	}
	return uint32(quot.Uint64()), nil
}

// ComputeHyBi00Challenge implements the draft-76 challenge: concatenate the
// two 32-bit big-endian key numbers with the 8-byte body and MD5 the
// result.
func ComputeHyBi00Challenge(key1, key2 string, body []byte) ([]byte, error) {
	if len(body) != 8 {
		return nil, fail("hybi00 challenge body must be exactly 8 bytes, got %d", len(body))
	}

	n1, err := extractKeyNumber(key1)
	if err != nil {
		return nil, err
	}
	n2, err := extractKeyNumber(key2)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], n1)
	binary.BigEndian.PutUint32(buf[4:8], n2)
	copy(buf[8:16], body)

	sum := md5.Sum(buf)
	return sum[:], nil
}

// HyBi00Response is the outcome of a successful draft-76 handshake.
type HyBi00Response struct {
	Origin      string
	Location    string
	Protocol    string
	ChallengeMD5 []byte
}

// WriteHyBi00Response writes the upgrade response and the 16-byte MD5
// digest body. The Sec- prefix on these headers is what distinguishes
// this dialect from Hixie-75 on the wire.
func WriteHyBi00Response(w interface {
	WriteString(string) (int, error)
	Write([]byte) (int, error)
}, resp HyBi00Response) error {
	lines := []string{
		"HTTP/1.1 101 WebSocket Protocol Handshake\r\n",
		"Upgrade: WebSocket\r\n",
		"Connection: Upgrade\r\n",
		"Sec-WebSocket-Origin: " + resp.Origin + "\r\n",
		"Sec-WebSocket-Location: " + resp.Location + "\r\n",
	}
	if resp.Protocol != "" {
		lines = append(lines, "Sec-WebSocket-Protocol: "+resp.Protocol+"\r\n")
	}
	lines = append(lines, "\r\n")

	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
	}
	_, err := w.Write(resp.ChallengeMD5)
	return err
}
