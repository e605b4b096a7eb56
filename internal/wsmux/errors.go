package wsmux

import "github.com/pkg/errors"

var (
	// ErrMuxUnexpected is raised for conditions the mux layer considers
	// impossible under normal operation.
	ErrMuxUnexpected = errors.New("wsmux: unexpected condition")
	// ErrInvalidMuxFrame is raised when an invalid multiplexed frame is
	// received (malformed channel id, truncated payload).
	ErrInvalidMuxFrame = errors.New("wsmux: invalid mux frame")
	// ErrInvalidMuxControlBlock is raised when a control block violates its
	// opcode-specific invariants (reserved encoding, non-empty clean-drop
	// reason, non-control/fragmented encapsulated frame).
	ErrInvalidMuxControlBlock = errors.New("wsmux: invalid mux control block")
)
