package wsframe

import "encoding/binary"

// EncodeControlFrameBytes serialises an unmasked, fin=1 hybi-latest control
// frame directly to a byte slice, for callers that need to embed a frame
// inside another payload rather than write it to a Transport — used by the
// mux extension's EncapsulatedControlFrame control block.
func EncodeControlFrameBytes(opcode byte, payload []byte) []byte {
	length := len(payload)
	var out []byte
	switch {
	case length < 126:
		out = []byte{0x80 | opcode, byte(length)}
	case length <= 0xFFFF:
		out = make([]byte, 4)
		out[0] = 0x80 | opcode
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(length))
	default:
		out = make([]byte, 10)
		out[0] = 0x80 | opcode
		out[1] = 127
		binary.BigEndian.PutUint64(out[2:], uint64(length))
	}
	return append(out, payload...)
}

// DecodeFrameBytes decodes a single hybi-latest-numbered frame directly
// from a byte slice (no masking support — mux-encapsulated control frames
// are never masked), returning the frame and the number of bytes consumed.
func DecodeFrameBytes(data []byte) (Frame, int, error) {
	if len(data) < 2 {
		return Frame{}, 0, ErrInvalidLength
	}
	b0, b1 := data[0], data[1]
	f := Frame{
		Fin:    b0&0x80 != 0,
		Rsv1:   b0&0x40 != 0,
		Rsv2:   b0&0x20 != 0,
		Rsv3:   b0&0x10 != 0,
		Opcode: b0 & 0x0F,
	}
	pos := 2
	length := int(b1 & 0x7F)
	switch length {
	case 126:
		if len(data) < pos+2 {
			return Frame{}, 0, ErrInvalidLength
		}
		length = int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
	case 127:
		if len(data) < pos+8 {
			return Frame{}, 0, ErrInvalidLength
		}
		if data[pos]&0x80 != 0 {
			return Frame{}, 0, ErrInvalidLength
		}
		length = int(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	}
	if len(data) < pos+length {
		return Frame{}, 0, ErrInvalidLength
	}
	f.Payload = data[pos : pos+length]
	return f, pos + length, nil
}
