package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Server -> Client (realtime channel)
//
// The wire format is untagged and shape-dispatched:
//   - a JSON array is a full chat history snapshot, replacing local state
//   - a JSON object with type "new_wallet" carries a created wallet
//   - any other JSON object is a single chat message, appended to local state
//
// DecodeEvent is the only place that dispatch lives; everything past it
// works with the tagged Event.

type EventKind string

const (
	EventSnapshot EventKind = "snapshot"
	EventMessage  EventKind = "message"
	EventWallet   EventKind = "new_wallet"
)

var ErrEmptyFrame = errors.New("empty realtime frame")
var ErrBadFrame = errors.New("malformed realtime frame")

// Event is a decoded realtime frame. Exactly one of History, Message,
// Wallet is meaningful, per Kind.
type Event struct {
	Kind    EventKind
	History []ChatMessage
	Message ChatMessage
	Wallet  Wallet
}

// DecodeEvent parses a raw frame into a tagged Event.
func DecodeEvent(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Event{}, ErrEmptyFrame
	}

	if trimmed[0] == '[' {
		var history []ChatMessage
		if err := json.Unmarshal(trimmed, &history); err != nil {
			return Event{}, errors.Join(ErrBadFrame, err)
		}
		return Event{Kind: EventSnapshot, History: history}, nil
	}

	var probe struct {
		Type     string `json:"type"`
		Wallet   Wallet `json:"wallet"`
		Username string `json:"username"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Event{}, errors.Join(ErrBadFrame, err)
	}

	if probe.Type == "new_wallet" {
		return Event{Kind: EventWallet, Wallet: probe.Wallet}, nil
	}

	return Event{
		Kind:    EventMessage,
		Message: ChatMessage{Username: probe.Username, Message: probe.Message},
	}, nil
}
