package hub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/pkg/types"
)

type HubMsg interface{ isHubMsg() }

// Join registers a client; it immediately receives the full chat history
// as an array frame, then incremental object frames.
type Join struct {
	ClientID string
	Username string
	Outbox   chan []byte
}

type Leave struct{ ClientID string }

// Post appends a chat message to history and broadcasts it.
type Post struct{ Message types.ChatMessage }

// NotifyWallet broadcasts a new_wallet frame. Notices are transient:
// they are not part of chat history.
type NotifyWallet struct{ Wallet types.Wallet }

type GetHistory struct{ Reply chan []types.ChatMessage }

type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Join) isHubMsg()         {}
func (Leave) isHubMsg()        {}
func (Post) isHubMsg()         {}
func (NotifyWallet) isHubMsg() {}
func (GetHistory) isHubMsg()   {}
func (GetView) isHubMsg()      {}
func (Shutdown) isHubMsg()     {}

// View reflects internal state without data races; test-only reads.
type View struct {
	NumClients int
	NumEntries int
}

// Hub is the chat room: one goroutine owns the history and the client
// set, everything else talks to it through the inbox.
type Hub struct {
	inbox   chan HubMsg
	history []types.ChatMessage
	clients map[string]chan []byte
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]chan []byte),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				// Snapshot first: the array shape tells the client
				// to replace, not append.
				snapshot, err := json.Marshal(historyOrEmpty(h.history))
				if err != nil {
					h.log.Error("marshal history", zap.Error(err))
					break
				}
				msg.Outbox <- snapshot
				h.log.Info("client joined chat",
					zap.String("client", msg.ClientID), zap.String("username", msg.Username))

			case Leave:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Post:
				h.history = append(h.history, msg.Message)
				frame, err := json.Marshal(msg.Message)
				if err != nil {
					h.log.Error("marshal message", zap.Error(err))
					break
				}
				h.broadcast(frame)

			case NotifyWallet:
				frame, err := json.Marshal(types.WalletNotice{Type: "new_wallet", Wallet: msg.Wallet})
				if err != nil {
					h.log.Error("marshal wallet notice", zap.Error(err))
					break
				}
				h.broadcast(frame)

			case GetHistory:
				out := make([]types.ChatMessage, len(h.history))
				copy(out, h.history)
				msg.Reply <- out

			case GetView:
				msg.Reply <- View{NumClients: len(h.clients), NumEntries: len(h.history)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(frame []byte) {
	for id, ch := range h.clients {
		select {
		case ch <- frame:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}

// historyOrEmpty keeps a nil history marshaling as [] rather than null;
// the client dispatches on the array shape.
func historyOrEmpty(history []types.ChatMessage) []types.ChatMessage {
	if history == nil {
		return []types.ChatMessage{}
	}
	return history
}
