package wsmux

import (
	"bytes"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pepnova/wsengine/internal/wsframe"
	"github.com/pepnova/wsengine/internal/wstransport"
)

// AddChannelCallback is consulted for every AddChannelRequest control
// block. It receives the raw encoded handshake request carried in the
// block's value and returns the encoded handshake response plus whether to
// accept the new channel. The callback is responsible for resolving the
// requested resource to an application Handler; wsmux stays independent of
// HTTP parsing and resource dispatch.
// onOpen, when accept is true, runs once the channel is registered — the
// caller's chance to start the equivalent of on_open/on_data for the new
// logical channel. It runs on its own goroutine; the Demultiplexer's read
// loop never blocks on it.
type AddChannelCallback func(encodedHandshakeRequest []byte) (encodedHandshakeResponse []byte, accept bool, onOpen func(lc *LogicalChannel))

// Demultiplexer operates only once the mux extension is negotiated. It owns
// the physical connection exclusively; LogicalChannels are shared handles
// into its channel map, never independent owners of the transport.
type Demultiplexer struct {
	transport *wstransport.Transport
	codec     wsframe.Codec
	onAdd     AddChannelCallback
	log       *zap.Logger

	mu       sync.Mutex
	channels map[uint32]*LogicalChannel
}

// New builds a Demultiplexer over an already-handshaken hybi-latest
// physical connection. Channel 1 is created automatically.
func New(transport *wstransport.Transport, codec wsframe.Codec, onAdd AddChannelCallback, log *zap.Logger) *Demultiplexer {
	d := &Demultiplexer{
		transport: transport,
		codec:     codec,
		onAdd:     onAdd,
		log:       log,
		channels:  map[uint32]*LogicalChannel{},
	}
	d.channels[DefaultChannelID] = newLogicalChannel(DefaultChannelID, d)
	return d
}

// Channel returns the LogicalChannel for id, if open.
func (d *Demultiplexer) Channel(id uint32) (*LogicalChannel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lc, ok := d.channels[id]
	return lc, ok
}

// Run reads physical frames and demultiplexes them until the transport
// terminates or a fatal mux error occurs. It blocks; callers run it in its
// own goroutine.
func (d *Demultiplexer) Run() error {
	table := wsframe.Opcodes(wsframe.HyBiLatest)
	for {
		f, err := d.codec.ReadFrame(d.transport)
		if err != nil {
			if tdErr := d.teardown(); tdErr != nil && d.log != nil {
				d.log.Warn("mux teardown errors", zap.Error(tdErr))
			}
			return err
		}
		if f.Opcode != table.Binary {
			continue
		}
		if err := d.dispatch(f.Payload); err != nil {
			if tdErr := d.teardown(); tdErr != nil && d.log != nil {
				d.log.Warn("mux teardown errors", zap.Error(tdErr))
			}
			return err
		}
	}
}

// teardown drains every open channel on physical-connection loss, collecting
// each channel's drain error (an outstanding unacknowledged ping) into a
// single aggregate rather than discarding all but the last one.
func (d *Demultiplexer) teardown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result *multierror.Error
	for id, lc := range d.channels {
		if err := lc.drain(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "channel %d", id))
		}
		delete(d.channels, id)
	}
	return result.ErrorOrNil()
}

func (d *Demultiplexer) dispatch(payload []byte) error {
	channelID, n, err := DecodeChannelID(payload)
	if err != nil {
		return ErrInvalidMuxFrame
	}
	rest := payload[n:]

	if channelID == ControlChannelID {
		for len(rest) > 0 {
			cb, consumed, err := DecodeControlBlock(rest)
			if err != nil {
				return ErrInvalidMuxFrame
			}
			if err := d.handleControlBlock(cb); err != nil {
				return err
			}
			rest = rest[consumed:]
		}
		return nil
	}

	d.mu.Lock()
	lc, ok := d.channels[channelID]
	d.mu.Unlock()
	if !ok {
		return ErrInvalidMuxFrame
	}
	lc.deliver(append([]byte(nil), rest...))
	return nil
}

func (d *Demultiplexer) handleControlBlock(cb ControlBlock) error {
	switch cb.Opcode {
	case OpcodeAddChannelRequest:
		encoding := cb.Flags & 0x03
		if encoding == 2 || encoding == 3 {
			return ErrInvalidMuxControlBlock
		}
		if cb.ObjectiveChannelID == ControlChannelID {
			return ErrInvalidMuxControlBlock
		}
		respHandshake, accept, onOpen := d.onAdd(cb.Value)
		if accept {
			d.mu.Lock()
			lc := newLogicalChannel(cb.ObjectiveChannelID, d)
			d.channels[cb.ObjectiveChannelID] = lc
			d.mu.Unlock()
			if onOpen != nil {
				go onOpen(lc)
			}
		}
		flags := encoding
		if !accept {
			flags |= 0x04
		}
		return d.writeControlBlock(ControlBlock{
			ObjectiveChannelID: cb.ObjectiveChannelID,
			Opcode:             OpcodeAddChannelResponse,
			Flags:              flags,
			Value:              respHandshake,
		})

	case OpcodeAddChannelResponse:
		if d.log != nil {
			d.log.Warn("unexpected AddChannelResponse on server side", zap.Uint32("channel_id", cb.ObjectiveChannelID))
		}
		return nil

	case OpcodeFlowControl:
		// Flow control is rejected rather than implemented.
		return ErrInvalidMuxControlBlock

	case OpcodeDropChannel:
		muxError := cb.Flags&0x04 != 0
		if !muxError && len(cb.Value) > 0 {
			return ErrInvalidMuxControlBlock
		}
		d.mu.Lock()
		if lc, ok := d.channels[cb.ObjectiveChannelID]; ok {
			lc.closeIncoming()
			delete(d.channels, cb.ObjectiveChannelID)
		}
		d.mu.Unlock()
		return nil

	case OpcodeEncapsulatedControlFrame:
		inner, _, err := wsframe.DecodeFrameBytes(cb.Value)
		if err != nil {
			return ErrInvalidMuxControlBlock
		}
		table := wsframe.Opcodes(wsframe.HyBiLatest)
		if !inner.Fin || !table.IsControl(inner.Opcode) {
			return ErrInvalidMuxControlBlock
		}
		return d.handleEncapsulated(cb.ObjectiveChannelID, inner, table)

	default:
		return ErrInvalidMuxControlBlock
	}
}

func (d *Demultiplexer) handleEncapsulated(channelID uint32, inner wsframe.Frame, table wsframe.OpcodeTable) error {
	switch inner.Opcode {
	case table.Close:
		d.mu.Lock()
		if lc, ok := d.channels[channelID]; ok {
			lc.closeIncoming()
			delete(d.channels, channelID)
		}
		d.mu.Unlock()
		return nil

	case table.Ping:
		return d.writeEncapsulated(channelID, table.Pong, inner.Payload)

	case table.Pong:
		d.mu.Lock()
		lc := d.channels[channelID]
		d.mu.Unlock()
		if lc == nil {
			return nil
		}
		front, ok := lc.pings.Front()
		if !ok || !bytes.Equal(front, inner.Payload) {
			return ErrInvalidMuxControlBlock
		}
		lc.pings.Pop()
		return nil
	}
	return nil
}

// writeControlBlock wraps cb as control-channel payload and writes it as a
// physical binary frame. The outer channel id (always 0, the control
// channel) is a separate leading field from cb.ObjectiveChannelID, which
// DecodeControlBlock reads as part of the block itself — dispatch needs
// both: the first to route to the control-block loop, the second to know
// which channel the block is about.
func (d *Demultiplexer) writeControlBlock(cb ControlBlock) error {
	encoded, err := EncodeControlBlock(cb)
	if err != nil {
		return err
	}
	controlIDBytes, err := EncodeChannelID(ControlChannelID)
	if err != nil {
		return err
	}
	framePayload := append(controlIDBytes, encoded...)
	return d.writePhysical(ControlChannelID, framePayload, true)
}

func (d *Demultiplexer) writeEncapsulated(channelID uint32, opcode byte, payload []byte) error {
	inner := wsframe.EncodeControlFrameBytes(opcode, payload)
	return d.writeControlBlock(ControlBlock{
		ObjectiveChannelID: channelID,
		Opcode:             OpcodeEncapsulatedControlFrame,
		Value:              inner,
	})
}

func (d *Demultiplexer) writeChannelData(channelID uint32, payload []byte, fin bool) error {
	idBytes, err := EncodeChannelID(channelID)
	if err != nil {
		return err
	}
	framePayload := append(idBytes, payload...)
	return d.writePhysical(channelID, framePayload, fin)
}

func (d *Demultiplexer) writePhysical(_ uint32, payload []byte, fin bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	table := wsframe.Opcodes(wsframe.HyBiLatest)
	return d.codec.WriteFrame(d.transport, wsframe.Frame{Opcode: table.Binary, Fin: fin, Payload: payload})
}

// Channels returns a snapshot of currently open channel ids, for metrics.
func (d *Demultiplexer) Channels() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]uint32, 0, len(d.channels))
	for id := range d.channels {
		ids = append(ids, id)
	}
	return ids
}
