package wshandshake

// Hixie75Response is the outcome of the oldest, keyless dialect: the
// response merely echoes the upgrade and carries the derived origin and
// location.
type Hixie75Response struct {
	Origin   string
	Location string
	Protocol string
}

// WriteHixie75Response writes the upgrade response with no body.
func WriteHixie75Response(w interface{ WriteString(string) (int, error) }, resp Hixie75Response) error {
	lines := []string{
		"HTTP/1.1 101 WebSocket Protocol Handshake\r\n",
		"Upgrade: WebSocket\r\n",
		"Connection: Upgrade\r\n",
		"WebSocket-Origin: " + resp.Origin + "\r\n",
		"WebSocket-Location: " + resp.Location + "\r\n",
	}
	if resp.Protocol != "" {
		lines = append(lines, "WebSocket-Protocol: "+resp.Protocol+"\r\n")
	}
	lines = append(lines, "\r\n")

	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
	}
	return nil
}
