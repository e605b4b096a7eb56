package wsmux

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/pepnova/wsengine/internal/wsframe"
	"github.com/pepnova/wsengine/internal/wsstream"
)

// LogicalChannel is a StreamEngine look-alike multiplexed over a shared
// physical connection. It exposes the same send/receive
// shape application handlers already use for a plain connection, so a
// Handler written against wsstream.Engine needs only the narrower interface
// both types happen to satisfy.
type LogicalChannel struct {
	ID  uint32
	mux *Demultiplexer

	mu       sync.Mutex
	closed   bool
	incoming chan []byte
	pings    wsstream.PingQueue
}

var _ wsstream.MessageStream = (*LogicalChannel)(nil)

func newLogicalChannel(id uint32, mux *Demultiplexer) *LogicalChannel {
	return &LogicalChannel{
		ID:       id,
		mux:      mux,
		incoming: make(chan []byte, 32),
	}
}

// deliver hands a decoded payload to the channel's receive queue. Called
// only from the Demultiplexer's read loop.
func (lc *LogicalChannel) deliver(payload []byte) {
	lc.mu.Lock()
	closed := lc.closed
	lc.mu.Unlock()
	if closed {
		return
	}
	lc.incoming <- payload
}

func (lc *LogicalChannel) closeIncoming() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.closed {
		return
	}
	lc.closed = true
	close(lc.incoming)
}

// drain is closeIncoming plus a reported error when the channel still had
// unacknowledged pings outstanding — used only from Demultiplexer.teardown,
// where the physical connection is gone and no pong can ever arrive.
func (lc *LogicalChannel) drain() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.closed {
		return nil
	}
	lc.closed = true
	close(lc.incoming)
	if !lc.pings.Empty() {
		return errors.New("wsmux: channel dropped with unacknowledged pings outstanding")
	}
	return nil
}

// SendMessage writes payload as this channel's data, fragmenting is the
// caller's concern; fin marks the end of one logical message.
func (lc *LogicalChannel) SendMessage(payload []byte, fin bool) error {
	return lc.mux.writeChannelData(lc.ID, payload, fin)
}

// ReceiveMessage blocks for the next payload delivered to this channel. ok
// is false once the channel has been dropped or the physical connection
// has terminated. Unlike the physical StreamEngine, a logical channel's
// data frames are never fragmented at this layer (one payload per mux data
// frame), so there is no MessageBuffer here.
func (lc *LogicalChannel) ReceiveMessage() (msg string, ok bool, err error) {
	payload, ok := <-lc.incoming
	if !ok {
		return "", false, nil
	}
	return string(payload), true, nil
}

// SendPing writes an encapsulated ping control frame for this channel and
// records the payload for pong matching.
func (lc *LogicalChannel) SendPing(payload []byte) error {
	table := wsframe.Opcodes(wsframe.HyBiLatest)
	lc.pings.Push(payload)
	return lc.mux.writeEncapsulated(lc.ID, table.Ping, payload)
}

// CloseConnection sends a clean DropChannel control block and marks the
// channel closed locally. The channel stays in the Demultiplexer's map
// until the peer's DropChannel (or an encapsulated close) for it arrives or
// the physical connection is torn down.
func (lc *LogicalChannel) CloseConnection() error {
	lc.mu.Lock()
	already := lc.closed
	lc.mu.Unlock()
	if already {
		return nil
	}
	lc.closeIncoming()
	return lc.mux.writeControlBlock(ControlBlock{
		ObjectiveChannelID: lc.ID,
		Opcode:             OpcodeDropChannel,
	})
}

// ClientTerminated and ServerTerminated collapse to the same closed flag: a
// logical channel has no independent half-close signal distinct from the
// DropChannel/clean-drop events the Demultiplexer already folds into
// closeIncoming.
func (lc *LogicalChannel) ClientTerminated() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.closed
}

func (lc *LogicalChannel) ServerTerminated() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.closed
}
