package wsstream

import "github.com/pkg/errors"

// Error kinds the engine distinguishes between. Only UnsupportedFrame is
// recoverable by a caller that wants to keep the connection open; the
// others end the session.
var (
	// ErrInvalidFrame signals a protocol violation: a malformed or
	// out-of-sequence frame. Fatal.
	ErrInvalidFrame = errors.New("wsstream: invalid frame")

	// ErrUnsupportedFrame signals a recognisably malformed but ignorable
	// frame (unknown opcode, unexpected reserved bit). Recoverable.
	ErrUnsupportedFrame = errors.New("wsstream: unsupported frame")

	// ErrBadOperation signals caller API misuse, e.g. send after close.
	ErrBadOperation = errors.New("wsstream: bad operation")
)

// ReceiveState annotates a frame-level error with the engine state active
// when the error was detected.
type ReceiveState struct {
	Opcode              byte
	FragmentationActive bool
}

// annotate wraps err with the receive state that was active when it was
// raised, preserving errors.Is/As compatibility via %w-style causes.
func annotate(err error, state ReceiveState) error {
	return errors.Wrapf(err, "opcode=0x%x fragmentation_active=%v", state.Opcode, state.FragmentationActive)
}
