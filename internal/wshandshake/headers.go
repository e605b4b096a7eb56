// Package wshandshake parses and validates HTTP upgrade requests, computes
// the cryptographic challenge response for each of the three dialects, and
// builds the dialect-appropriate response. It shares one header-parsing
// core across the three handshake variants rather than factoring them
// through inheritance.
package wshandshake

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrHandshake is the sentinel wrapped by every handshake validation
// failure.
var ErrHandshake = errors.New("wshandshake: invalid handshake")

func fail(format string, args ...interface{}) error {
	return errors.Wrapf(ErrHandshake, format, args...)
}

// singletonHeaders must not appear more than once in a conforming request.
var singletonHeaders = []string{
	"Upgrade", "Connection", "Host", "Sec-Websocket-Key", "Sec-Websocket-Version",
}

// ValidateSingletons rejects a request carrying more than one value for any
// header required to be a singleton.
func ValidateSingletons(h http.Header) error {
	for _, name := range singletonHeaders {
		if len(h.Values(name)) > 1 {
			return fail("duplicate header %q", name)
		}
	}
	return nil
}

// splitTokenList splits a comma-separated header value into trimmed,
// non-empty tokens.
func splitTokenList(value string) []string {
	var tokens []string
	for _, part := range strings.Split(value, ",") {
		t := strings.TrimSpace(part)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// hasToken reports whether value (a comma-separated list) contains token,
// comparing case-insensitively when ci is true.
func hasToken(value, token string, ci bool) bool {
	for _, t := range splitTokenList(value) {
		if ci {
			if strings.EqualFold(t, token) {
				return true
			}
		} else if t == token {
			return true
		}
	}
	return false
}

// ValidateUpgradeConnection checks the Upgrade and Connection headers.
// wsToken is the dialect-specific spelling of the WebSocket upgrade token;
// connectionCaseInsensitive selects hybi-latest's looser Connection-token
// match.
func ValidateUpgradeConnection(h http.Header, wsToken string, connectionCaseInsensitive bool) error {
	if !hasToken(h.Get("Upgrade"), wsToken, false) {
		return fail("missing or invalid Upgrade header")
	}
	if !hasToken(h.Get("Connection"), "Upgrade", connectionCaseInsensitive) {
		return fail("missing or invalid Connection header")
	}
	return nil
}

// ParseSubprotocols validates and splits a Sec-WebSocket-Protocol header
// value. A subprotocol token consists exclusively of bytes 0x21-0x7E;
// empty tokens are invalid.
func ParseSubprotocols(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}
	tokens := splitTokenList(value)
	for _, t := range tokens {
		if !isSubprotocolToken(t) {
			return nil, fail("invalid subprotocol token %q", t)
		}
	}
	return tokens, nil
}

func isSubprotocolToken(t string) bool {
	if t == "" {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < 0x21 || t[i] > 0x7E {
			return false
		}
	}
	return true
}

// ParseExtensions parses a semicolon-parameterised comma list. Unknown
// extension names are kept in the returned slice; it is the caller's job
// to drop them from the accepted set.
func ParseExtensions(value string) []ExtensionRequest {
	var out []ExtensionRequest
	for _, entry := range splitTokenList(value) {
		parts := strings.Split(entry, ";")
		ext := ExtensionRequest{Name: strings.TrimSpace(parts[0]), Params: map[string]string{}}
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			kv := strings.SplitN(p, "=", 2)
			key := strings.TrimSpace(kv[0])
			val := ""
			if len(kv) == 2 {
				val = strings.Trim(strings.TrimSpace(kv[1]), `"`)
			}
			ext.Params[key] = val
		}
		out = append(out, ext)
	}
	return out
}

// ExtensionRequest is one parsed entry from Sec-WebSocket-Extensions.
type ExtensionRequest struct {
	Name   string
	Params map[string]string
}

// knownZeroParamExtensions are the only extensions recognised when offered
// with zero parameters.
var knownZeroParamExtensions = map[string]bool{
	"deflate-stream":            true,
	"deflate-application-data":  true,
	"mux":                       true,
}

// AcceptedExtensions filters reqs down to the subset this server
// recognises, silently dropping the rest.
func AcceptedExtensions(reqs []ExtensionRequest) []ExtensionRequest {
	var out []ExtensionRequest
	for _, r := range reqs {
		if len(r.Params) == 0 && knownZeroParamExtensions[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

// dropExtension removes every entry named name from reqs.
func dropExtension(reqs []ExtensionRequest, name string) []ExtensionRequest {
	var out []ExtensionRequest
	for _, r := range reqs {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}

// BuildLocation derives the WebSocket-Location / Sec-WebSocket-Location
// value from the Host header and request target.
func BuildLocation(secure bool, host, target string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + host + target
}
