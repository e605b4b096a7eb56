package wsframe

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/pepnova/wsengine/internal/wstransport"
)

// ErrInvalidLength is returned when a 64-bit extended length has its high
// bit set; such lengths are always rejected as invalid. DecodeFrameBytes
// also returns it when the slice is shorter than the frame's header or
// declared payload.
var ErrInvalidLength = errors.New("wsframe: 64-bit length with high bit set")

// modernCodec handles HyBi06 and HyBiLatest: a 7-bit length in the second
// header byte with 126/127 sentinels selecting a 16-bit or 64-bit extended
// length, and an optional 4-byte masking key.
type modernCodec struct {
	dialect      Dialect
	opcodes      OpcodeTable
	rsvBitIsMask bool // true: top bit of byte 1 is "masked" (hybi-latest); false: it's rsv4 (hybi06)
	serverMasker *RepeatedXor
}

func (c *modernCodec) Dialect() Dialect { return c.dialect }

func (c *modernCodec) IsControlOpcode(opcode byte) bool { return c.opcodes.IsControl(opcode) }

func (c *modernCodec) ReadFrame(t *wstransport.Transport) (Frame, error) {
	header, err := t.ReadExact(2)
	if err != nil {
		return Frame{}, err
	}

	b0, b1 := header[0], header[1]
	f := Frame{
		Fin:    b0&0x80 != 0,
		Rsv1:   b0&0x40 != 0,
		Rsv2:   b0&0x20 != 0,
		Rsv3:   b0&0x10 != 0,
		Opcode: b0 & 0x0F,
	}

	topBit := b1&0x80 != 0
	if c.rsvBitIsMask {
		f.Masked = topBit
	} else {
		f.Rsv4 = topBit
	}

	length := int(b1 & 0x7F)
	switch length {
	case 126:
		ext, err := t.ReadExact(2)
		if err != nil {
			return Frame{}, err
		}
		length = int(binary.BigEndian.Uint16(ext))
		if length <= 125 {
			f.NonMinimalLength = true
		}
	case 127:
		ext, err := t.ReadExact(8)
		if err != nil {
			return Frame{}, err
		}
		if ext[0]&0x80 != 0 {
			return Frame{}, ErrInvalidLength
		}
		length64 := binary.BigEndian.Uint64(ext)
		length = int(length64)
		if length64 <= 0xFFFF {
			f.NonMinimalLength = true
		}
	}

	if f.Masked {
		key, err := t.ReadExact(4)
		if err != nil {
			return Frame{}, err
		}
		copy(f.MaskingKey[:], key)
	}

	payload, err := t.ReadExact(length)
	if err != nil {
		return Frame{}, err
	}

	if f.Masked {
		NewRepeatedXor4(f.MaskingKey).Mask(payload)
	} else if c.serverMasker != nil && !c.rsvBitIsMask {
		// hybi-06: server->client frames are masked with the connection's
		// derived key, with no per-frame masked bit on the wire.
		c.serverMasker.Mask(payload)
	}
	f.Payload = payload

	return f, nil
}

func (c *modernCodec) WriteFrame(t *wstransport.Transport, f Frame) error {
	payload := f.Payload
	masked := f.Masked

	if !c.rsvBitIsMask && c.serverMasker != nil {
		// hybi-06 outbound masking is implicit: copy so we never mutate the
		// caller's slice, then mask with the connection key.
		cp := make([]byte, len(payload))
		copy(cp, payload)
		c.serverMasker.Mask(cp)
		payload = cp
	} else if masked {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		NewRepeatedXor4(f.MaskingKey).Mask(cp)
		payload = cp
	}

	b0 := f.Opcode & 0x0F
	if f.Fin {
		b0 |= 0x80
	}
	if f.Rsv1 {
		b0 |= 0x40
	}
	if f.Rsv2 {
		b0 |= 0x20
	}
	if f.Rsv3 {
		b0 |= 0x10
	}

	var topBit byte
	if c.rsvBitIsMask {
		if masked {
			topBit = 0x80
		}
	} else if f.Rsv4 {
		topBit = 0x80
	}

	length := len(payload)
	var out []byte
	switch {
	case length < 126:
		out = make([]byte, 2, 2+length+4)
		out[0] = b0
		out[1] = byte(length) | topBit
	case length <= 0xFFFF:
		out = make([]byte, 4, 4+length+4)
		out[0] = b0
		out[1] = 126 | topBit
		binary.BigEndian.PutUint16(out[2:4], uint16(length))
	default:
		out = make([]byte, 10, 10+length+4)
		out[0] = b0
		out[1] = 127 | topBit
		binary.BigEndian.PutUint64(out[2:10], uint64(length))
	}

	if masked {
		out = append(out, f.MaskingKey[:]...)
	}
	out = append(out, payload...)

	return t.WriteAll(out)
}
