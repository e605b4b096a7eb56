package wsstream

import "github.com/pepnova/wsengine/internal/wsframe"

// Bits of Context.NegotiatedRsvMask, one per reserved bit an extension may
// claim.
const (
	RsvMaskBit1 byte = 1 << iota
	RsvMaskBit2
	RsvMaskBit3
)

// Extension is a single parsed entry from a Sec-WebSocket-Extensions (or
// equivalent) header: a name plus its semicolon-separated parameters.
type Extension struct {
	Name   string
	Params map[string]string
}

// MessageStream is the narrow send/receive/ping/close shape a Context hands
// to application handlers. *Engine is the physical-connection
// implementation; wsmux.LogicalChannel is the per-channel implementation
// once the mux extension is negotiated — the Demultiplexer presents
// per-channel StreamEngine look-alikes. Handlers write against this
// interface and never need to know which one backs a given Context.
type MessageStream interface {
	SendMessage(payload []byte, end bool) error
	ReceiveMessage() (msg string, ok bool, err error)
	SendPing(payload []byte) error
	CloseConnection() error
	ClientTerminated() bool
	ServerTerminated() bool
}

// Context is the per-connection record. It is
// constructed by the handshake path and handed to the application; it
// exclusively owns its StreamEngine. It is mutated only during the
// handshake and by the StreamEngine's close path, never concurrently with
// frame I/O.
type Context struct {
	ID       string
	Dialect  wsframe.Dialect
	Stream   MessageStream
	Origin   string
	Resource string

	RequestedSubprotocols []string
	SelectedSubprotocol   string

	RequestedExtensions []Extension
	SelectedExtensions  []Extension

	// NegotiatedRsvMask has a bit set for each rsv1..rsv3 bit a negotiated
	// extension claims; StreamEngine excludes those bits from the "any
	// reserved bit set" violation check.
	NegotiatedRsvMask byte

	Transformer PayloadTransformer

	CloseCode   uint16
	CloseReason string

	// OnPingHandler/OnPongHandler, when non-nil, are dispatched instead of
	// the default auto-pong / queue-pop behaviour. Presence is an explicit
	// field rather than something handlers probe for.
	OnPingHandler func(ctx *Context, payload []byte)
	OnPongHandler func(ctx *Context, payload []byte)
}

// ClientTerminated reports whether the peer has sent (and we have
// processed) a close frame.
func (c *Context) ClientTerminated() bool { return c.Stream.ClientTerminated() }

// ServerTerminated reports whether we have sent a close frame.
func (c *Context) ServerTerminated() bool { return c.Stream.ServerTerminated() }

// Done reports whether both directions have terminated, i.e. the
// connection has reached its terminal state.
func (c *Context) Done() bool { return c.ClientTerminated() && c.ServerTerminated() }
