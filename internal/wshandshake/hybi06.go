package wshandshake

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
)

// maskingGUID is the magic string hybi-06 concatenates with the client key
// and server nonce before hashing to derive the connection masking key.
const maskingGUID = "61AC5F19-FBBA-4540-B96F-6561F1AB40A8"

// GenerateServerNonce returns 16 cryptographically random bytes, base64
// encoded for the Sec-WebSocket-Nonce response header.
func GenerateServerNonce() (raw [16]byte, encoded string, err error) {
	if _, err = rand.Read(raw[:]); err != nil {
		return raw, "", err
	}
	return raw, base64.StdEncoding.EncodeToString(raw[:]), nil
}

// DeriveHyBi06MaskingKey computes the connection-scoped masking key used
// for every server-to-client frame: SHA1(key ∥ server_nonce ∥ GUID). The
// full 20-byte digest is the key material fed to the RepeatedXor masker,
// not a 4-byte truncation of it.
func DeriveHyBi06MaskingKey(key, serverNonceB64 string) []byte {
	sum := sha1.Sum([]byte(key + serverNonceB64 + maskingGUID))
	return sum[:]
}

// HyBi06Response is the outcome of a successful hybi-06 handshake.
type HyBi06Response struct {
	Origin        string
	Location      string
	Protocol      string
	ServerNonceB64 string
}

// WriteHyBi06Response writes the upgrade response, including the
// Sec-WebSocket-Nonce header the client needs to derive the same masking
// key.
func WriteHyBi06Response(w interface{ WriteString(string) (int, error) }, resp HyBi06Response) error {
	lines := []string{
		"HTTP/1.1 101 Switching Protocols\r\n",
		"Upgrade: websocket\r\n",
		"Connection: Upgrade\r\n",
		"Sec-WebSocket-Origin: " + resp.Origin + "\r\n",
		"Sec-WebSocket-Location: " + resp.Location + "\r\n",
		"Sec-WebSocket-Nonce: " + resp.ServerNonceB64 + "\r\n",
	}
	if resp.Protocol != "" {
		lines = append(lines, "Sec-WebSocket-Protocol: "+resp.Protocol+"\r\n")
	}
	lines = append(lines, "\r\n")

	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
	}
	return nil
}
