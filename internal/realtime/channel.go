package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

var ErrNotConnected = errors.New("realtime channel not open")

type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusJoined
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// EventHandler receives every decoded inbound frame. It runs on the read
// goroutine; hand the event off quickly (the state store inbox is the
// usual destination).
type EventHandler func(types.Event)

// Channel is one live connection: dial, join handshake, read loop. It
// never reconnects on its own; lifecycle belongs to the Manager.
type Channel struct {
	conn     *websocket.Conn
	username string
	onEvent  EventHandler
	log      *zap.Logger
	status   atomic.Int32
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// Dial opens the connection and performs the join handshake. On return
// the channel is Joined and its read loop is running.
func Dial(parent context.Context, url, username string, onEvent EventHandler, log *zap.Logger) (*Channel, error) {
	ctx, cancel := context.WithCancel(parent)

	c := &Channel{
		username: username,
		onEvent:  onEvent,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.status.Store(int32(StatusConnecting))

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	dialCancel()
	if err != nil {
		c.status.Store(int32(StatusDisconnected))
		cancel()
		return nil, err
	}
	c.conn = conn

	join, _ := json.Marshal(types.JoinMessage{Type: "join", Username: username})
	writeCtx, writeCancel := context.WithTimeout(ctx, 3*time.Second)
	err = conn.Write(writeCtx, websocket.MessageText, join)
	writeCancel()
	if err != nil {
		c.status.Store(int32(StatusDisconnected))
		_ = conn.Close(websocket.StatusProtocolError, "join failed")
		cancel()
		return nil, err
	}

	c.status.Store(int32(StatusJoined))
	c.log.Info("realtime channel joined", zap.String("username", username))

	go c.readLoop()
	return c, nil
}

func (c *Channel) Status() Status { return Status(c.status.Load()) }

func (c *Channel) readLoop() {
	defer close(c.done)
	defer c.status.Store(int32(StatusDisconnected))

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			// Treat clean close/going-away as normal:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Info("realtime channel closed")
			default:
				if c.ctx.Err() == nil {
					c.log.Warn("realtime channel read failed", zap.Error(err))
				}
			}
			return
		}

		ev, err := types.DecodeEvent(data)
		if err != nil {
			c.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		c.onEvent(ev)
	}
}

// Send writes one chat message. Outside Joined it is a rejected no-op:
// the caller keeps the draft and nothing goes on the wire.
func (c *Channel) Send(ctx context.Context, msg types.ChatMessage) error {
	if c.Status() != StatusJoined {
		c.log.Warn("send rejected, channel not open", zap.String("status", c.Status().String()))
		return ErrNotConnected
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		c.status.Store(int32(StatusDisconnected))
		return err
	}
	return nil
}

// Close tears the connection down and waits for the read loop to exit.
// Idempotent.
func (c *Channel) Close() {
	c.status.Store(int32(StatusDisconnected))
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	<-c.done
}
