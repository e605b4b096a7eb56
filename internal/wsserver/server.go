// Package wsserver replaces the original dispatcher.py module-level,
// import-time handler directory scan with an explicit Server struct: a
// resource→handler map built at startup via Handle, and an accept path that
// runs the handshake, hands the resulting ConnectionContext to the resolved
// Handler, and tears the connection down when the handler returns.
package wsserver

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pepnova/wsengine/internal/wshandshake"
	"github.com/pepnova/wsengine/internal/wsmetrics"
	"github.com/pepnova/wsengine/internal/wsmux"
	"github.com/pepnova/wsengine/internal/wsstream"
)

// Options is the handshake-relevant subset of the configuration surface,
// plus whether the mux extension is offered at all.
type Options struct {
	AllowHixie75 bool
	Secure       bool
	EnableMux    bool

	// PingInterval, when non-zero, starts a wsstream.PingWatchdog on every
	// physical connection.
	PingInterval time.Duration
}

// Server owns the resource→Handler map and runs the accept path. It
// implements http.Handler so it can be served directly by an *http.Server,
// or embedded inside a larger router.
type Server struct {
	router   *mux.Router
	handlers map[string]Handler
	opts     Options
	log      *zap.Logger
	metrics  *wsmetrics.Collectors
}

// New builds an empty Server. Register resources with Handle before
// serving traffic.
func New(opts Options, log *zap.Logger, metrics *wsmetrics.Collectors) *Server {
	return &Server{
		router:   mux.NewRouter(),
		handlers: map[string]Handler{},
		opts:     opts,
		log:      log,
		metrics:  metrics,
	}
}

// Handle registers h for pattern (a gorilla/mux path pattern, e.g. "/echo"
// or "/chat/{room}"). This is the static registration builder that
// substitutes for the original's directory scan of *_wsh.py files.
func (s *Server) Handle(pattern string, h Handler) {
	s.router.Methods(http.MethodGet).Path(pattern).Name(pattern)
	s.handlers[pattern] = h
}

// resolve finds the Handler registered for req's path, using gorilla/mux's
// own route-matching semantics rather than reimplementing dispatch.py's
// resource-matching.
func (s *Server) resolve(req *http.Request) (Handler, bool) {
	var match mux.RouteMatch
	if !s.router.Match(req, &match) || match.Route == nil {
		return nil, false
	}
	h, ok := s.handlers[match.Route.GetName()]
	return h, ok
}

// ServeHTTP runs the handshake for a single upgrade request and, on
// success, hands the connection off to its Handler on a new goroutine.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, ok := s.resolve(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	hsOpts := wshandshake.Options{AllowHixie75: s.opts.AllowHixie75, Secure: s.opts.Secure, EnableMux: s.opts.EnableMux}
	if sel, ok := handler.(SubprotocolSelector); ok {
		hsOpts.SelectSubprotocol = sel.SelectSubprotocol
	}

	ctx, err := wshandshake.Process(w, r, hsOpts, s.log)
	if err != nil {
		// Process returns no Context on failure, so the dialect is not known
		// here: every rejection is counted under "unknown".
		if s.metrics != nil {
			s.metrics.HandshakeRejected.WithLabelValues("unknown").Inc()
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.metrics != nil {
		s.metrics.ConnectionsOpen.Inc()
		s.metrics.ConnectionsTotal.Inc()
		dialect := ctx.Dialect.String()
		if engine, ok := ctx.Stream.(*wsstream.Engine); ok {
			engine.SetFrameObserver(func(opcode byte) {
				s.metrics.FramesTotal.WithLabelValues(dialect, strconv.Itoa(int(opcode))).Inc()
			})
		}
	}

	go s.serveConnection(ctx, handler)
}

// serveConnection runs OnOpen then OnData (or, when the mux extension was
// negotiated, runs the Demultiplexer instead of a single OnData call per
// channel). It always tears the connection down before returning.
func (s *Server) serveConnection(ctx *wsstream.Context, handler Handler) {
	watchdogCancel := s.startWatchdog(ctx)
	defer func() {
		watchdogCancel()
		if s.metrics != nil {
			s.metrics.ConnectionsOpen.Dec()
		}
		if closer, ok := ctx.Stream.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	if err := handler.OnOpen(ctx); err != nil {
		if s.log != nil {
			s.log.Warn("handler rejected connection", zap.String("conn_id", ctx.ID), zap.Error(err))
		}
		_ = ctx.Stream.CloseConnection()
		return
	}

	if s.muxNegotiated(ctx) {
		s.runMux(ctx, handler)
		return
	}

	s.runSingleChannel(ctx, handler)
}

// startWatchdog starts a PingWatchdog for ctx's physical connection when
// PingInterval is configured, returning a cancel func the caller must
// always invoke when the connection tears down.
func (s *Server) startWatchdog(ctx *wsstream.Context) context.CancelFunc {
	if s.opts.PingInterval <= 0 {
		return func() {}
	}
	engine, ok := ctx.Stream.(*wsstream.Engine)
	if !ok {
		return func() {}
	}
	wdCtx, cancel := context.WithCancel(context.Background())
	watchdog := wsstream.NewPingWatchdog(engine, s.opts.PingInterval)
	go watchdog.Run(wdCtx, s.opts.PingInterval)
	return cancel
}

func (s *Server) runSingleChannel(ctx *wsstream.Context, handler Handler) {
	if err := handler.OnData(ctx); err != nil && s.log != nil {
		s.log.Info("handler returned error", zap.String("conn_id", ctx.ID), zap.Error(err))
	}
	_ = ctx.Stream.CloseConnection()
}

func (s *Server) muxNegotiated(ctx *wsstream.Context) bool {
	if !s.opts.EnableMux {
		return false
	}
	for _, ext := range ctx.SelectedExtensions {
		if ext.Name == "mux" {
			return true
		}
	}
	return false
}

// runMux takes over the physical connection once the mux extension is
// negotiated: it starts the Demultiplexer, hands the auto-created default
// channel to the already-resolved handler (channel 1 needs no
// AddChannelRequest), and blocks until the Demultiplexer stops.
func (s *Server) runMux(ctx *wsstream.Context, handler Handler) {
	physical := ctx.Stream.(*wsstream.Engine)
	demux := wsmux.New(physical.Transport(), physical.Codec(), s.newOnAddChannel(ctx), s.log)

	defaultChannel, _ := demux.Channel(wsmux.DefaultChannelID)
	chCtx := s.channelContext(ctx, ctx.Resource, defaultChannel)
	go s.runChannel(chCtx, handler)

	if err := demux.Run(); err != nil && s.log != nil {
		s.log.Info("mux demultiplexer stopped", zap.String("conn_id", ctx.ID), zap.Error(err))
	}
}

// runChannel runs OnData to completion for one logical channel and then
// drops it; used both for the default channel and for channels accepted
// via AddChannelRequest.
func (s *Server) runChannel(chCtx *wsstream.Context, handler Handler) {
	if err := handler.OnData(chCtx); err != nil && s.log != nil {
		s.log.Info("channel handler returned error", zap.String("conn_id", chCtx.ID), zap.Error(err))
	}
	_ = chCtx.Stream.CloseConnection()
}

// channelContext derives a per-channel Context from the physical
// connection's Context, substituting Stream and Resource.
func (s *Server) channelContext(base *wsstream.Context, resource string, lc *wsmux.LogicalChannel) *wsstream.Context {
	id := base.ID
	if lc != nil {
		id = base.ID + "#" + strconv.FormatUint(uint64(lc.ID), 10)
	}
	return &wsstream.Context{
		ID:          id,
		Dialect:     base.Dialect,
		Stream:      lc,
		Origin:      base.Origin,
		Resource:    resource,
		Transformer: wsstream.Identity,
	}
}

// resolveSubHandshake parses an AddChannelRequest's encoded handshake
// request (a bare "METHOD path HTTP/1.1" plus headers, no body) and
// resolves it to a registered Handler the same way ServeHTTP resolves a
// real HTTP request.
func (s *Server) resolveSubHandshake(encoded []byte) (*http.Request, Handler, bool) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(encoded)))
	if err != nil {
		return nil, nil, false
	}
	h, ok := s.resolve(req)
	return req, h, ok
}

// buildSubHandshakeResponse computes the encoded hybi-latest-style 101
// response an AddChannelResponse control block carries for req (the mux
// extension only ever negotiates over a hybi-latest physical connection, so
// the wrapped sub-handshake follows the same Sec-WebSocket-Accept math).
func (s *Server) buildSubHandshakeResponse(req *http.Request, h Handler) ([]byte, error) {
	accept, err := wshandshake.ComputeAcceptHyBiLatest(req.Header.Get("Sec-WebSocket-Key"))
	if err != nil {
		return nil, err
	}
	var selected string
	if sel, ok := h.(SubprotocolSelector); ok {
		offered, err := wshandshake.ParseSubprotocols(req.Header.Get("Sec-WebSocket-Protocol"))
		if err != nil {
			return nil, err
		}
		selected = sel.SelectSubprotocol(offered)
	}
	var buf bytes.Buffer
	if err := wshandshake.WriteHyBiLatestResponse(&buf, wshandshake.HyBiLatestResponse{
		Accept: accept, SelectedSubprotocol: selected,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newOnAddChannel builds the wsmux.AddChannelCallback for one physical
// connection's Demultiplexer: it resolves the sub-handshake's resource,
// rejects unknown resources or a malformed sub-handshake, and otherwise
// accepts, builds the encoded response wsmux echoes back in the
// AddChannelResponse control block, and schedules the resolved handler's
// OnOpen/OnData pair on the new channel.
func (s *Server) newOnAddChannel(base *wsstream.Context) wsmux.AddChannelCallback {
	return func(encodedHandshakeRequest []byte) ([]byte, bool, func(lc *wsmux.LogicalChannel)) {
		req, h, ok := s.resolveSubHandshake(encodedHandshakeRequest)
		if !ok {
			return nil, false, nil
		}
		resp, err := s.buildSubHandshakeResponse(req, h)
		if err != nil {
			if s.log != nil {
				s.log.Warn("sub-handshake rejected", zap.Error(err))
			}
			return nil, false, nil
		}
		onOpen := func(lc *wsmux.LogicalChannel) {
			chCtx := s.channelContext(base, req.URL.Path, lc)
			if err := h.OnOpen(chCtx); err != nil {
				if s.log != nil {
					s.log.Warn("channel handler rejected", zap.String("conn_id", chCtx.ID), zap.Error(err))
				}
				_ = chCtx.Stream.CloseConnection()
				return
			}
			if s.metrics != nil {
				s.metrics.MuxChannelsOpen.Inc()
				defer s.metrics.MuxChannelsOpen.Dec()
			}
			s.runChannel(chCtx, h)
		}
		return resp, true, onOpen
	}
}
