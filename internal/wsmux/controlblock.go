package wsmux

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Control-channel opcodes.
const (
	OpcodeAddChannelRequest       byte = 0
	OpcodeAddChannelResponse      byte = 1
	OpcodeFlowControl             byte = 2
	OpcodeDropChannel             byte = 3
	OpcodeEncapsulatedControlFrame byte = 4
)

var ErrTruncatedControlBlock = errors.New("wsmux: truncated control block")
var ErrControlBlockValueTooLarge = errors.New("wsmux: control block value exceeds 32 bits")

// ControlBlock is one parsed mux control block: objective channel id, a
// 3-bit opcode, 3 opcode-specific flag bits, and an opcode-specific value.
type ControlBlock struct {
	ObjectiveChannelID uint32
	Opcode             byte
	Flags              byte
	Value              []byte
}

// EncodeControlBlock serialises cb using the smallest length-field size
// that fits its value.
func EncodeControlBlock(cb ControlBlock) ([]byte, error) {
	idBytes, err := EncodeChannelID(cb.ObjectiveChannelID)
	if err != nil {
		return nil, err
	}

	length := len(cb.Value)
	if length > 0xFFFFFFFF {
		return nil, ErrControlBlockValueTooLarge
	}

	var sizeCat byte
	var lengthBytes []byte
	switch {
	case length < 1<<8:
		sizeCat = 0
		lengthBytes = []byte{byte(length)}
	case length < 1<<16:
		sizeCat = 1
		lengthBytes = make([]byte, 2)
		binary.BigEndian.PutUint16(lengthBytes, uint16(length))
	case length < 1<<24:
		sizeCat = 2
		lengthBytes = make([]byte, 3)
		lengthBytes[0] = byte(length >> 16)
		binary.BigEndian.PutUint16(lengthBytes[1:], uint16(length&0xFFFF))
	default:
		sizeCat = 3
		lengthBytes = make([]byte, 4)
		binary.BigEndian.PutUint32(lengthBytes, uint32(length))
	}

	firstByte := (cb.Opcode << 5) | (cb.Flags << 2) | sizeCat

	out := make([]byte, 0, len(idBytes)+1+len(lengthBytes)+length)
	out = append(out, idBytes...)
	out = append(out, firstByte)
	out = append(out, lengthBytes...)
	out = append(out, cb.Value...)
	return out, nil
}

// DecodeControlBlock parses one control block from the front of data,
// returning the block and the number of bytes consumed. The decoder honours
// the declared length-field size rather than assuming any particular width.
func DecodeControlBlock(data []byte) (ControlBlock, int, error) {
	channelID, n, err := DecodeChannelID(data)
	if err != nil {
		return ControlBlock{}, 0, err
	}
	if len(data) < n+1 {
		return ControlBlock{}, 0, ErrTruncatedControlBlock
	}

	firstByte := data[n]
	opcode := firstByte >> 5
	flags := (firstByte >> 2) & 0x07
	lenFieldSize := int(firstByte&0x03) + 1

	pos := n + 1
	if len(data) < pos+lenFieldSize {
		return ControlBlock{}, 0, ErrTruncatedControlBlock
	}

	var length int
	switch lenFieldSize {
	case 1:
		length = int(data[pos])
	case 2:
		length = int(binary.BigEndian.Uint16(data[pos : pos+2]))
	case 3:
		length = int(data[pos])<<16 | int(binary.BigEndian.Uint16(data[pos+1:pos+3]))
	case 4:
		length = int(binary.BigEndian.Uint32(data[pos : pos+4]))
	}
	pos += lenFieldSize

	if len(data) < pos+length {
		return ControlBlock{}, 0, ErrTruncatedControlBlock
	}

	value := data[pos : pos+length]
	return ControlBlock{
		ObjectiveChannelID: channelID,
		Opcode:             opcode,
		Flags:              flags,
		Value:              value,
	}, pos + length, nil
}
