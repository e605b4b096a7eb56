// Package wsstream implements message-level send/receive over a single
// wire dialect: fragmentation, control-frame dispatch, ping accounting, and
// the closing handshake.
package wsstream

import (
	"bytes"
	"encoding/binary"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pepnova/wsengine/internal/wsframe"
	"github.com/pepnova/wsengine/internal/wstransport"
)

// ErrConnectionTerminated re-exports wstransport's sentinel so callers of
// this package never need to import wstransport just to test for it.
var ErrConnectionTerminated = wstransport.ErrConnectionTerminated

// Engine is one dialect's StreamEngine for one physical connection. It
// exclusively owns its MessageBuffer and PingQueue, and holds a reference
// (not ownership) to the underlying transport.
type Engine struct {
	dialect   wsframe.Dialect
	codec     wsframe.Codec
	transport *wstransport.Transport
	log       *zap.Logger

	textOpcode, continuationOpcode byte
	closeOpcode                    byte
	pingOpcode, pongOpcode         byte
	hasControlFrames               bool // false for legacy dialects: no ping/pong at all

	mu               sync.Mutex
	buffer           MessageBuffer
	pings            PingQueue
	sendContinuing   bool
	clientTerminated bool
	serverTerminated bool

	ctx *Context

	// frameObserver, when set, is called once per frame read, before any
	// dispatch logic runs — the hook wsserver uses to feed the frames_total
	// metric without wsstream depending on wsmetrics.
	frameObserver func(opcode byte)
}

// SetFrameObserver installs a callback invoked once per successfully read
// frame. Passing nil disables observation.
func (e *Engine) SetFrameObserver(fn func(opcode byte)) {
	e.frameObserver = fn
}

// New builds a StreamEngine for dialect over transport. The caller must
// call SetContext before using ReceiveMessage so that ping/pong hooks,
// close code/reason, and the negotiated rsv mask are reachable.
func New(dialect wsframe.Dialect, codec wsframe.Codec, t *wstransport.Transport, log *zap.Logger) *Engine {
	e := &Engine{dialect: dialect, codec: codec, transport: t, log: log}
	if dialect.IsLegacy() {
		e.textOpcode = wsframe.LegacyTextOpcode
		e.closeOpcode = wsframe.LegacyCloseOpcode
		e.continuationOpcode = 0xFF // never produced by legacyCodec
		e.hasControlFrames = false
	} else {
		table := wsframe.Opcodes(dialect)
		e.textOpcode = table.Text
		e.continuationOpcode = table.Continuation
		e.closeOpcode = table.Close
		e.pingOpcode = table.Ping
		e.pongOpcode = table.Pong
		e.hasControlFrames = true
	}
	return e
}

// SetContext wires the engine to the ConnectionContext that owns it.
func (e *Engine) SetContext(ctx *Context) { e.ctx = ctx }

func (e *Engine) inbound(payload []byte) ([]byte, error) {
	if e.ctx == nil || e.ctx.Transformer == nil {
		return payload, nil
	}
	return e.ctx.Transformer.Inbound(payload)
}

func decodeUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// SendMessage sends payload as a single message. end=false starts or
// continues a fragmented message under modern dialects; legacy dialects
// reject end=false outright.
func (e *Engine) SendMessage(payload []byte, end bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.serverTerminated {
		return ErrBadOperation
	}

	if e.dialect.IsLegacy() {
		if !end {
			return ErrBadOperation
		}
		return e.codec.WriteFrame(e.transport, wsframe.Frame{Opcode: e.textOpcode, Fin: true, Payload: payload})
	}

	out := payload
	if e.ctx != nil && e.ctx.Transformer != nil {
		var err error
		out, err = e.ctx.Transformer.Outbound(payload)
		if err != nil {
			return err
		}
	}

	opcode := e.textOpcode
	if e.sendContinuing {
		opcode = e.continuationOpcode
	}
	err := e.codec.WriteFrame(e.transport, wsframe.Frame{Opcode: opcode, Fin: end, Payload: out})
	if err != nil {
		return err
	}
	e.sendContinuing = !end
	return nil
}

// sendControlFrame writes a control frame outside of the fragmentation
// accounting above; callers hold e.mu already except where noted.
func (e *Engine) sendControlFrame(opcode byte, payload []byte) error {
	return e.codec.WriteFrame(e.transport, wsframe.Frame{Opcode: opcode, Fin: true, Payload: payload})
}

// SendPing emits a ping frame and records payload as the new tail of the
// PingQueue.
func (e *Engine) SendPing(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.serverTerminated {
		return ErrBadOperation
	}
	if !e.hasControlFrames {
		return ErrBadOperation
	}
	e.pings.Push(payload)
	return e.sendControlFrame(e.pingOpcode, payload)
}

// ReceiveMessage loops over incoming frames until a complete message, a
// close (returning ok=false), or a fatal error is produced.
// UnsupportedFrame is the only recoverable error: on that return the caller
// may call ReceiveMessage again to continue on the next frame.
func (e *Engine) ReceiveMessage() (msg string, ok bool, err error) {
	for {
		f, err := e.codec.ReadFrame(e.transport)
		if err != nil {
			return "", false, err
		}

		if e.frameObserver != nil {
			e.frameObserver(f.Opcode)
		}

		if f.NonMinimalLength && e.log != nil {
			e.log.Warn("non-minimal frame length encoding", zap.Uint8("opcode", f.Opcode))
		}

		state := ReceiveState{Opcode: f.Opcode, FragmentationActive: e.buffer.Active()}

		if !e.dialect.IsLegacy() {
			mask := byte(0)
			if e.ctx != nil {
				mask = e.ctx.NegotiatedRsvMask
				if e.ctx.Transformer != nil {
					if bit := e.ctx.Transformer.ReservedBit(); bit >= 1 && bit <= 3 {
						mask |= 1 << (bit - 1)
					}
				}
			}
			violation := (f.Rsv1 && mask&RsvMaskBit1 == 0) ||
				(f.Rsv2 && mask&RsvMaskBit2 == 0) ||
				(f.Rsv3 && mask&RsvMaskBit3 == 0)
			if violation {
				return "", false, annotate(ErrUnsupportedFrame, state)
			}
		}

		switch {
		case e.hasControlFrames && e.codec.IsControlOpcode(f.Opcode):
			produced, controlErr := e.handleControlFrame(f, state)
			if controlErr != nil {
				return "", false, controlErr
			}
			if produced {
				return "", false, nil
			}
			continue

		case !e.hasControlFrames && f.Opcode == e.closeOpcode:
			e.handleCloseFrame(f)
			return "", false, nil

		case f.Opcode == e.continuationOpcode && !e.dialect.IsLegacy():
			if !e.buffer.Active() {
				return "", false, annotate(ErrInvalidFrame, state)
			}
			e.buffer.append(f.Payload)
			if f.Fin {
				_, payload := e.buffer.finish()
				payload, err := e.inbound(payload)
				if err != nil {
					return "", false, err
				}
				return decodeUTF8(payload), true, nil
			}
			continue

		case f.Opcode == e.textOpcode:
			if e.buffer.Active() {
				return "", false, annotate(ErrInvalidFrame, state)
			}
			if f.Fin {
				payload, err := e.inbound(f.Payload)
				if err != nil {
					return "", false, err
				}
				return decodeUTF8(payload), true, nil
			}
			e.buffer.begin(f.Opcode)
			e.buffer.append(f.Payload)
			continue

		default:
			return "", false, annotate(ErrUnsupportedFrame, state)
		}
	}
}

// handleControlFrame dispatches a close/ping/pong frame under a modern
// dialect. produced=true means the caller should return (None) to its
// caller (a close was processed).
func (e *Engine) handleControlFrame(f wsframe.Frame, state ReceiveState) (produced bool, err error) {
	if !f.Fin {
		return false, annotate(ErrInvalidFrame, state)
	}

	switch f.Opcode {
	case e.closeOpcode:
		if len(f.Payload) == 1 {
			return false, annotate(ErrInvalidFrame, state)
		}
		e.handleCloseFrame(f)
		return true, nil

	case e.pingOpcode:
		if e.ctx != nil && e.ctx.OnPingHandler != nil {
			e.ctx.OnPingHandler(e.ctx, f.Payload)
			return false, nil
		}
		e.mu.Lock()
		werr := e.sendControlFrame(e.pongOpcode, f.Payload)
		e.mu.Unlock()
		return false, werr

	case e.pongOpcode:
		if e.ctx != nil && e.ctx.OnPongHandler != nil {
			e.ctx.OnPongHandler(e.ctx, f.Payload)
		}
		front, ok := e.pings.Front()
		if !ok {
			return false, annotate(ErrInvalidFrame, state)
		}
		if !bytes.Equal(front, f.Payload) {
			return false, annotate(ErrInvalidFrame, state)
		}
		e.pings.Pop()
		return false, nil

	default:
		return false, annotate(ErrUnsupportedFrame, state)
	}
}

// handleCloseFrame marks clientTerminated, decodes the status code/reason
// when present (hybi-latest only), and replies unless this is the ack of
// our own close.
func (e *Engine) handleCloseFrame(f wsframe.Frame) {
	e.mu.Lock()
	e.clientTerminated = true

	if e.dialect == wsframe.HyBiLatest && len(f.Payload) >= 2 {
		if e.ctx != nil {
			e.ctx.CloseCode = binary.BigEndian.Uint16(f.Payload[:2])
			e.ctx.CloseReason = decodeUTF8(f.Payload[2:])
		}
	}

	alreadyServerTerminated := e.serverTerminated
	if !alreadyServerTerminated {
		e.serverTerminated = true
		_ = e.sendControlFrame(e.closeOpcode, f.Payload)
	}
	e.mu.Unlock()
}

// CloseConnection runs the active closing handshake: send a close frame,
// mark serverTerminated, then block until the peer's ack (a None return
// from ReceiveMessage) arrives. Any data message arriving first is a
// protocol violation from the peer's perspective and fails as
// ErrConnectionTerminated.
func (e *Engine) CloseConnection() error {
	e.mu.Lock()
	if e.serverTerminated {
		e.mu.Unlock()
		return nil
	}

	var payload []byte
	if !e.dialect.IsLegacy() && e.dialect == wsframe.HyBiLatest {
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, 1000)
	}

	opcode := e.closeOpcode
	err := e.codec.WriteFrame(e.transport, wsframe.Frame{Opcode: opcode, Fin: true, Payload: payload})
	e.serverTerminated = true
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if e.clientTerminated {
		return nil
	}

	for {
		_, ok, err := e.ReceiveMessage()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return ErrConnectionTerminated
	}
}

// Transport returns the engine's underlying transport, for callers (such as
// wsmux) that take over the physical connection's frame I/O entirely once
// an extension negotiates that it owns the wire from here on.
func (e *Engine) Transport() *wstransport.Transport { return e.transport }

// Codec returns the engine's frame codec, for the same reason as Transport.
func (e *Engine) Codec() wsframe.Codec { return e.codec }

// Close closes the underlying transport directly, bypassing the closing
// handshake. Callers that have already run CloseConnection, or that are
// abandoning a connection after a handler error, use this to release the
// socket.
func (e *Engine) Close() error {
	return e.transport.Close()
}

// ClientTerminated and ServerTerminated expose the two monotonic flags for
// callers that only have the engine, not its Context.
func (e *Engine) ClientTerminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clientTerminated
}

func (e *Engine) ServerTerminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serverTerminated
}
