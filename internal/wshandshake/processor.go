package wshandshake

import (
	"bufio"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pepnova/wsengine/internal/wsframe"
	"github.com/pepnova/wsengine/internal/wsstream"
	"github.com/pepnova/wsengine/internal/wstransport"
)

// Options carries the handshake-relevant slice of the server configuration
// surface.
type Options struct {
	AllowHixie75 bool
	Secure       bool

	// EnableMux gates acceptance of the "mux" extension token; when false
	// a client offering it never sees it echoed back, so it cannot believe
	// multiplexing negotiated when the server has no Demultiplexer running
	// for this connection.
	EnableMux bool

	// SelectSubprotocol, when non-nil, is consulted with the client's
	// offered subprotocols before the response is written — the response
	// must carry the chosen value in the same HTTP round trip, so this
	// runs ahead of Context handoff rather than inside on_open. Selection
	// itself is left to the application; this is the mechanical hook that
	// makes that possible without reordering the wire response.
	SelectSubprotocol func(offered []string) string
}

// Hijacker is the subset of http.Hijacker the processor needs; satisfied by
// *http.response via the standard library.
type Hijacker interface {
	Hijack() (net.Conn, *bufio.ReadWriter, error)
}

// Process runs the common handshake path: parse, validate,
// select a dialect, compute and write the dialect's response, then
// construct the StreamEngine and ConnectionContext and hand back ownership
// of both to the caller. On a failure found before the hijack (method,
// protocol version, headers, dialect detection, subprotocols) the
// connection is left un-hijacked and the caller should respond with a plain
// HTTP error. A failure after the hijack (the HyBi00 challenge, the
// hybi-latest Sec-WebSocket-Key check, writing the response) closes the
// connection and returns the error.
func Process(w http.ResponseWriter, r *http.Request, opts Options, log *zap.Logger) (*wsstream.Context, error) {
	if r.Method != http.MethodGet {
		return nil, fail("method %s is not GET", r.Method)
	}
	if r.ProtoMajor < 1 || (r.ProtoMajor == 1 && r.ProtoMinor < 1) {
		return nil, fail("protocol %s is older than HTTP/1.1", r.Proto)
	}
	if err := ValidateSingletons(r.Header); err != nil {
		return nil, err
	}

	var preReadBody []byte
	if r.Header.Get("Sec-WebSocket-Key1") != "" && r.Header.Get("Sec-WebSocket-Key2") != "" {
		buf := make([]byte, 8)
		if n, err := io.ReadFull(r.Body, buf); err == nil && n == 8 {
			preReadBody = buf
		}
	}

	dialect, err := Detect(r.Header, preReadBody, opts.AllowHixie75)
	if err != nil {
		return nil, err
	}

	wsToken := "websocket"
	connectionCI := true
	if dialect == wsframe.Hixie75 || dialect == wsframe.HyBi00 {
		wsToken = "WebSocket"
		connectionCI = false
	}
	if err := ValidateUpgradeConnection(r.Header, wsToken, connectionCI); err != nil {
		return nil, err
	}

	subprotocols, err := ParseSubprotocols(r.Header.Get("Sec-WebSocket-Protocol"))
	if err != nil {
		return nil, err
	}
	extReqs := AcceptedExtensions(ParseExtensions(r.Header.Get("Sec-WebSocket-Extensions")))
	if !opts.EnableMux {
		extReqs = dropExtension(extReqs, "mux")
	}

	hj, ok := w.(Hijacker)
	if !ok {
		return nil, errors.New("wshandshake: response writer does not support hijacking")
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, errors.Wrap(err, "wshandshake: hijack failed")
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Sec-WebSocket-Origin")
	}
	location := BuildLocation(opts.Secure, r.Host, r.RequestURI)

	var selected string
	if opts.SelectSubprotocol != nil {
		selected = opts.SelectSubprotocol(subprotocols)
	}

	var masker *wsframe.RepeatedXor
	switch dialect {
	case wsframe.Hixie75:
		if err := WriteHixie75Response(rw.Writer, Hixie75Response{Origin: origin, Location: location, Protocol: selected}); err != nil {
			conn.Close()
			return nil, err
		}
	case wsframe.HyBi00:
		digest, err := ComputeHyBi00Challenge(r.Header.Get("Sec-WebSocket-Key1"), r.Header.Get("Sec-WebSocket-Key2"), preReadBody)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := WriteHyBi00Response(rw.Writer, HyBi00Response{
			Origin: origin, Location: location, ChallengeMD5: digest, Protocol: selected,
		}); err != nil {
			conn.Close()
			return nil, err
		}
	case wsframe.HyBi06:
		key := r.Header.Get("Sec-WebSocket-Key")
		_, nonceB64, err := GenerateServerNonce()
		if err != nil {
			conn.Close()
			return nil, err
		}
		keyBytes := DeriveHyBi06MaskingKey(key, nonceB64)
		masker = wsframe.NewRepeatedXor(keyBytes)
		if err := WriteHyBi06Response(rw.Writer, HyBi06Response{
			Origin: origin, Location: location, ServerNonceB64: nonceB64, Protocol: selected,
		}); err != nil {
			conn.Close()
			return nil, err
		}
	case wsframe.HyBiLatest:
		accept, err := ComputeAcceptHyBiLatest(r.Header.Get("Sec-WebSocket-Key"))
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := WriteHyBiLatestResponse(rw.Writer, HyBiLatestResponse{Accept: accept, SelectedSubprotocol: selected, SelectedExtensions: extReqs}); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if err := rw.Writer.Flush(); err != nil {
		conn.Close()
		return nil, err
	}

	transport := wstransport.New(conn, rw.Reader)
	codec := wsframe.New(dialect, masker)
	id := uuid.NewString()
	connLog := log
	if connLog != nil {
		connLog = log.With(zap.String("conn_id", id), zap.String("dialect", dialect.String()))
	}
	engine := wsstream.New(dialect, codec, transport, connLog)

	ctx := &wsstream.Context{
		ID:                    id,
		Dialect:               dialect,
		Stream:                engine,
		Origin:                origin,
		Resource:              r.URL.Path,
		RequestedSubprotocols: subprotocols,
		SelectedSubprotocol:   selected,
		Transformer:           wsstream.Identity,
	}
	for _, e := range extReqs {
		ext := wsstream.Extension{Name: e.Name, Params: e.Params}
		ctx.RequestedExtensions = append(ctx.RequestedExtensions, ext)
		if dialect == wsframe.HyBiLatest {
			ctx.SelectedExtensions = append(ctx.SelectedExtensions, ext)
		}
	}
	engine.SetContext(ctx)

	return ctx, nil
}
