package wsstream

import "github.com/valyala/bytebufferpool"

// MessageBuffer accumulates the fragments of one in-progress message.
// firstOpcode is set on the non-continuation frame that starts a message
// and cleared when the message completes; the invariant firstOpcode-set iff
// accumulated-payload-non-empty only holds while fragmentation is active
// (a single-frame message never populates the buffer at all).
type MessageBuffer struct {
	active      bool
	firstOpcode byte
	buf         *bytebufferpool.ByteBuffer
}

// begin starts accumulation for a message whose first frame carried opcode.
func (m *MessageBuffer) begin(opcode byte) {
	m.active = true
	m.firstOpcode = opcode
	m.buf = bytebufferpool.Get()
}

// append adds a fragment's payload to the buffer.
func (m *MessageBuffer) append(payload []byte) {
	m.buf.Write(payload)
}

// finish returns the accumulated payload and the opcode that started the
// message, then resets the buffer to its idle state.
func (m *MessageBuffer) finish() (opcode byte, payload []byte) {
	opcode = m.firstOpcode
	payload = append([]byte(nil), m.buf.B...)
	bytebufferpool.Put(m.buf)
	m.buf = nil
	m.active = false
	m.firstOpcode = 0
	return opcode, payload
}

// Active reports whether a fragmented message is currently being
// accumulated.
func (m *MessageBuffer) Active() bool { return m.active }
