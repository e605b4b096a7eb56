package wsframe

import (
	"strings"

	"github.com/pepnova/wsengine/internal/wstransport"
)

// legacyCodec handles Hixie75 and HyBi00: the byte-delimited framing that
// predates length-prefixed frames. A text frame is "0x00 <utf8> 0xFF"; a
// close is the two-byte pair "0xFF 0x00"; any other high-bit-set leading
// byte starts a varint-length binary frame whose payload is read and
// discarded.
type legacyCodec struct {
	dialect Dialect
}

func (c *legacyCodec) Dialect() Dialect { return c.dialect }

func (c *legacyCodec) IsControlOpcode(opcode byte) bool { return opcode == LegacyCloseOpcode }

func (c *legacyCodec) ReadFrame(t *wstransport.Transport) (Frame, error) {
	for {
		lead, err := t.ReadExact(1)
		if err != nil {
			return Frame{}, err
		}
		b := lead[0]

		if b&0x80 == 0 {
			payload, err := t.ReadUntil(0xFF)
			if err != nil {
				return Frame{}, err
			}
			return Frame{
				Fin:     true,
				Opcode:  LegacyTextOpcode,
				Payload: []byte(strings.ToValidUTF8(string(payload), "�")),
			}, nil
		}

		if b == 0xFF {
			nxt, err := t.ReadExact(1)
			if err != nil {
				return Frame{}, err
			}
			if nxt[0] == 0x00 {
				return Frame{Fin: true, Opcode: LegacyCloseOpcode}, nil
			}
			if err := c.discardVarint(t, nxt[0]); err != nil {
				return Frame{}, err
			}
			continue
		}

		lengthSeed, err := t.ReadExact(1)
		if err != nil {
			return Frame{}, err
		}
		if err := c.discardVarint(t, lengthSeed[0]); err != nil {
			return Frame{}, err
		}
	}
}

// discardVarint consumes the remainder of a varint-length byte count
// (first byte already read as seed) and then reads and discards that many
// payload bytes.
func (c *legacyCodec) discardVarint(t *wstransport.Transport, seed byte) error {
	length := int(seed & 0x7F)
	cont := seed&0x80 != 0
	for cont {
		b, err := t.ReadExact(1)
		if err != nil {
			return err
		}
		length = length*128 + int(b[0]&0x7F)
		cont = b[0]&0x80 != 0
	}
	_, err := t.ReadExact(length)
	return err
}

func (c *legacyCodec) WriteFrame(t *wstransport.Transport, f Frame) error {
	if f.Opcode == LegacyCloseOpcode {
		return t.WriteAll([]byte{0xFF, 0x00})
	}
	out := make([]byte, 0, len(f.Payload)+2)
	out = append(out, 0x00)
	out = append(out, f.Payload...)
	out = append(out, 0xFF)
	return t.WriteAll(out)
}
