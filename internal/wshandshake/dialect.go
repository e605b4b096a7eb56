package wshandshake

import (
	"net/http"

	"github.com/pepnova/wsengine/internal/wsframe"
)

// versionHybiLatest is the Sec-WebSocket-Version value selecting the
// RFC-6455-style dialect.
const versionHybiLatest = "13"

// Detect picks the dialect from the handshake headers (and, for HyBi00,
// the pre-read body). body is the raw bytes already read past the header
// block (only meaningful for HyBi00, whose challenge needs exactly eight
// of them).
func Detect(h http.Header, body []byte, allowHixie75 bool) (wsframe.Dialect, error) {
	switch version := h.Get("Sec-WebSocket-Version"); version {
	case versionHybiLatest:
		return wsframe.HyBiLatest, nil
	case "4", "5", "6":
		return wsframe.HyBi06, nil
	}

	if h.Get("Sec-WebSocket-Key1") != "" && h.Get("Sec-WebSocket-Key2") != "" && len(body) == 8 {
		return wsframe.HyBi00, nil
	}

	if allowHixie75 {
		return wsframe.Hixie75, nil
	}

	return 0, fail("no recognised dialect in request (set allow_hixie75 to permit the Hixie-75 fallback)")
}
