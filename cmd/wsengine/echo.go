package main

import "github.com/pepnova/wsengine/internal/wsstream"

// echoHandler is the example resource handler: it sends back every message
// it receives, unchanged.
type echoHandler struct{}

func (echoHandler) OnOpen(ctx *wsstream.Context) error {
	return nil
}

func (echoHandler) OnData(ctx *wsstream.Context) error {
	for {
		msg, ok, err := ctx.Stream.ReceiveMessage()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := ctx.Stream.SendMessage([]byte(msg), true); err != nil {
			return err
		}
	}
}
