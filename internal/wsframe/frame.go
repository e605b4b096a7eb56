// Package wsframe implements the per-dialect wire frame: encoding and
// decoding a single WebSocket frame with no multi-frame state. Multi-frame
// concerns (fragmentation, ping/pong accounting, closing handshakes) live in
// wsstream.
package wsframe

import "fmt"

// Dialect identifies a historical WebSocket wire-protocol revision. The tag
// is immutable once a handshake has picked it: it dictates framing, masking
// direction, control opcode numerics, and close semantics.
type Dialect int

const (
	Hixie75 Dialect = iota
	HyBi00
	HyBi06
	HyBiLatest
)

func (d Dialect) String() string {
	switch d {
	case Hixie75:
		return "hixie75"
	case HyBi00:
		return "hybi00"
	case HyBi06:
		return "hybi06"
	case HyBiLatest:
		return "hybi-latest"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// IsLegacy reports whether the dialect uses the byte-delimited framer
// (legacy.go) instead of the length-prefixed modern framer.
func (d Dialect) IsLegacy() bool {
	return d == Hixie75 || d == HyBi00
}

// Frame is a value record for a single wire frame. By protocol, control
// frames (close, ping, pong) carry Fin=true and a Payload of at most 125
// bytes. The codecs do not check this: WriteFrame encodes whatever Fin and
// payload length the caller supplies.
type Frame struct {
	Fin    bool
	Rsv1   bool
	Rsv2   bool
	Rsv3   bool
	Rsv4   bool // hybi-06 only: top bit of the length byte, unused elsewhere
	Opcode byte

	Masked     bool
	MaskingKey [4]byte

	Payload []byte

	// NonMinimalLength records that the decoder accepted a length encoding
	// wider than the minimum required. Decoders may accept this but it's
	// logged as a protocol warning rather than silently ignored.
	NonMinimalLength bool
}

// OpcodeTable is the per-dialect numeric assignment for the handful of
// opcodes the engine cares about. Every dialect codec owns an independent
// table; nothing here is shared across dialects.
type OpcodeTable struct {
	Continuation byte
	Text         byte
	Binary       byte
	Close        byte
	Ping         byte
	Pong         byte
}

// IsControl reports whether opcode is one of Close/Ping/Pong in this table.
func (t OpcodeTable) IsControl(opcode byte) bool {
	return opcode == t.Close || opcode == t.Ping || opcode == t.Pong
}

// hybi04Opcodes is used by HyBi06 (opcodes did not change between hybi-04
// and hybi-06, only the length/rsv4 byte layout did).
var hybi04Opcodes = OpcodeTable{
	Continuation: 0x0,
	Close:        0x1,
	Ping:         0x2,
	Pong:         0x3,
	Text:         0x4,
	Binary:       0x5,
}

// Legacy dialects (Hixie75, HyBi00) have no wire-level opcode byte; these
// sentinel values let wsstream.StreamEngine dispatch on Frame.Opcode
// uniformly across all four dialects.
const (
	LegacyTextOpcode  byte = 0x01
	LegacyCloseOpcode byte = 0x08
)

// hybiLatestOpcodes is the RFC-6455-style numbering.
var hybiLatestOpcodes = OpcodeTable{
	Continuation: 0x0,
	Text:         0x1,
	Binary:       0x2,
	Close:        0x8,
	Ping:         0x9,
	Pong:         0xA,
}

// Opcodes returns the numeric opcode assignment for d. Legacy dialects have
// no frame-level opcode byte; callers MUST NOT call this for Hixie75 or
// HyBi00.
func Opcodes(d Dialect) OpcodeTable {
	switch d {
	case HyBi06:
		return hybi04Opcodes
	case HyBiLatest:
		return hybiLatestOpcodes
	default:
		panic(fmt.Sprintf("wsframe: Opcodes called for legacy dialect %s", d))
	}
}
