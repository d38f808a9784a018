// Package feed serves the current presence to local websocket clients such as
// the status and monitor commands.
package feed

import "encoding/json"

type MessageType string

const (
	MsgActivity MessageType = "activity"
	MsgCleared  MessageType = "cleared"
)

// Message is one frame on the feed.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Path is the websocket endpoint.
const Path = "/ws"
