package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adityapw/wallet-tracker/internal/hub"
	"github.com/adityapw/wallet-tracker/pkg/types"
)

// Handler accepts chat connections. Protocol: the client sends
// {type:"join",username} first; after that every inbound frame is a
// {username,message} object. Outbound, the client gets the history
// array once, then broadcast frames.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		join, ok := readJoin(r.Context(), conn)
		if !ok {
			_ = conn.Close(websocket.StatusProtocolError, "expected join")
			return
		}

		out := make(chan []byte, 8)
		clientID := uuid.NewString()

		h.Inbox() <- hub.Join{ClientID: clientID, Username: join.Username, Outbox: out}
		defer func() { h.Inbox() <- hub.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, frame)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var msg types.ChatMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn("dropping bad chat frame", zap.Error(err))
				continue
			}
			if msg.Username == "" {
				msg.Username = join.Username
			}

			h.Inbox() <- hub.Post{Message: msg}
		}
	}
}

// readJoin waits briefly for the join handshake.
func readJoin(parent context.Context, conn *websocket.Conn) (types.JoinMessage, bool) {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return types.JoinMessage{}, false
	}

	var jm types.JoinMessage
	if err := json.Unmarshal(data, &jm); err != nil || jm.Type != "join" || jm.Username == "" {
		return types.JoinMessage{}, false
	}
	return jm, true
}
