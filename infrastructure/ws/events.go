package ws

import (
	"encoding/json"
	"log/slog"
)

// Server-to-client frames are JSON objects distinguished by their leading
// field: "event" for lifecycle notices, "from" for message payloads,
// "ack" for directed-send confirmations and "error" for failures.

const (
	eventWelcome = "welcome"
	eventJoined  = "joined"
	eventLeft    = "left"
)

const (
	errInvalidClientID   = "invalid_client_id"
	errDuplicateClientID = "duplicate_client_id"
	errTargetNotFound    = "not_found"
	errRateLimited       = "rate_limited"
	errOverloaded        = "overloaded"
)

// serverSender tags messages injected through the control surface.
const serverSender = "server"

type presenceEvent struct {
	Event    string `json:"event"`
	ClientID string `json:"clientId"`
	Group    string `json:"group,omitempty"`
}

type messageFrame struct {
	From string `json:"from"`
	Body string `json:"body"`
}

type ackFrame struct {
	Ack    bool   `json:"ack"`
	Target string `json:"target"`
}

type errorFrame struct {
	Error  string `json:"error"`
	Target string `json:"target,omitempty"`
}

// marshalFrame encodes a wire frame. The frame types above cannot fail to
// marshal; a nil return signals a programming error and is logged.
func marshalFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal wire frame", "err", err)
		return nil
	}
	return data
}
