package wsserver

import "github.com/pepnova/wsengine/internal/wsstream"

// Handler is the application's per-resource hook pair: OnOpen runs once
// after a successful handshake and may reject
// the connection by returning an error; OnData runs the conversation and
// returns when the handler is done, using ctx.Stream's send/receive/ping/
// close methods.
type Handler interface {
	OnOpen(ctx *wsstream.Context) error
	OnData(ctx *wsstream.Context) error
}

// SubprotocolSelector is an optional Handler extension: when a registered
// Handler implements it, Server consults it during the handshake to pick
// Sec-WebSocket-Protocol before the response is written.
type SubprotocolSelector interface {
	SelectSubprotocol(offered []string) string
}

// HandlerFunc pair adapts two plain functions to Handler, for handlers too
// small to warrant a named type.
type HandlerFunc struct {
	Open func(ctx *wsstream.Context) error
	Data func(ctx *wsstream.Context) error
}

func (h HandlerFunc) OnOpen(ctx *wsstream.Context) error {
	if h.Open == nil {
		return nil
	}
	return h.Open(ctx)
}

func (h HandlerFunc) OnData(ctx *wsstream.Context) error {
	if h.Data == nil {
		return nil
	}
	return h.Data(ctx)
}
