// Package wsmux implements the multiplexing extension: a compact
// control-block protocol that splits one physical StreamEngine into many
// logical LogicalChannel StreamEngines.
package wsmux

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxChannelID is the largest representable channel id (2^29 - 1).
const MaxChannelID = 1<<29 - 1

// ControlChannelID is reserved and never present in a MuxDemultiplexer's
// channel map.
const ControlChannelID = 0

// DefaultChannelID is created automatically at mux handshake time.
const DefaultChannelID = 1

var ErrChannelIDRange = errors.New("wsmux: channel id out of range")
var ErrShortChannelID = errors.New("wsmux: truncated channel id")

// EncodeChannelID returns the minimum-length 1-4 byte encoding of id.
func EncodeChannelID(id uint32) ([]byte, error) {
	switch {
	case id > MaxChannelID:
		return nil, ErrChannelIDRange
	case id < 1<<7:
		return []byte{byte(id)}, nil
	case id < 1<<14:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, 0x8000+uint16(id))
		return buf, nil
	case id < 1<<21:
		buf := make([]byte, 3)
		buf[0] = 0xC0 + byte(id>>16)
		binary.BigEndian.PutUint16(buf[1:], uint16(id&0xFFFF))
		return buf, nil
	default:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, 0xE0000000+id)
		return buf, nil
	}
}

// DecodeChannelID decodes the leading channel id from data, returning the
// id and the number of bytes consumed.
func DecodeChannelID(data []byte) (id uint32, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrShortChannelID
	}
	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xC0 == 0x80:
		if len(data) < 2 {
			return 0, 0, ErrShortChannelID
		}
		return uint32(binary.BigEndian.Uint16(data[:2]) & 0x3FFF), 2, nil
	case b0&0xE0 == 0xC0:
		if len(data) < 3 {
			return 0, 0, ErrShortChannelID
		}
		high := uint32(b0 & 0x1F)
		low := uint32(binary.BigEndian.Uint16(data[1:3]))
		return (high << 16) | low, 3, nil
	default: // top three bits "111"
		if len(data) < 4 {
			return 0, 0, ErrShortChannelID
		}
		return binary.BigEndian.Uint32(data[:4]) & 0x1FFFFFFF, 4, nil
	}
}
