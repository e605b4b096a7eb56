package wsframe

import "github.com/pepnova/wsengine/internal/wstransport"

// Codec encodes and decodes a single frame for one dialect. A codec carries
// no multi-frame state; fragmentation reassembly and control-frame dispatch
// belong to wsstream.StreamEngine.
type Codec interface {
	Dialect() Dialect

	// ReadFrame blocks until one complete frame (modern dialects) or one
	// complete text/close event (legacy dialects, which have no generic
	// frame concept) is available from t.
	ReadFrame(t *wstransport.Transport) (Frame, error)

	// WriteFrame serialises f to its minimum-length wire encoding and
	// writes it to t.
	WriteFrame(t *wstransport.Transport, f Frame) error

	// IsControlOpcode reports whether opcode is a control opcode under this
	// dialect's numbering. Legacy dialects have no opcode byte and treat
	// only Close as meaningful here.
	IsControlOpcode(opcode byte) bool
}

// New builds the Codec for dialect d. masker, when non-nil, is used for
// server-to-client masking under HyBi06 (the connection-scoped key derived
// at handshake time); it is ignored by other dialects.
func New(d Dialect, masker *RepeatedXor) Codec {
	switch d {
	case Hixie75, HyBi00:
		return &legacyCodec{dialect: d}
	case HyBi06:
		return &modernCodec{dialect: d, opcodes: Opcodes(d), rsvBitIsMask: false, serverMasker: masker}
	case HyBiLatest:
		return &modernCodec{dialect: d, opcodes: Opcodes(d), rsvBitIsMask: true}
	default:
		panic("wsframe: unknown dialect")
	}
}
