// Package protocol defines the JSON wire format spoken over each WebSocket
// connection: one JSON object per text frame, tagged by a "type" field.
//
// Server to client: "message", "userList", "error", "pong".
// Client to server: "message", "ping". Anything else is either malformed
// (not a JSON object) or ignored (valid JSON of an unhandled shape).
package protocol

import (
	"encoding/json"
	"time"
)

// Message type tags.
const (
	TypeMessage  = "message"
	TypeUserList = "userList"
	TypeError    = "error"
	TypePing     = "ping"
	TypePong     = "pong"
)

// SystemUsername is the synthetic sender of join/leave notices.
const SystemUsername = "System"

// ChatMessage is broadcast to every client when a user sends a chat line,
// and for System join/leave notices.
type ChatMessage struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// UserList carries the full roster of connected usernames. Clients replace
// their view wholesale; this is never a diff.
type UserList struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ErrorMessage is sent to the offending connection only.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Pong answers a client liveness probe. Timestamp and ServerTime carry the
// same instant; clients use the echoed ID to match their probe.
type Pong struct {
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	ID         string `json:"id"`
	ServerTime string `json:"serverTime"`
}

// NewChatMessage builds a chat broadcast stamped with the given instant.
func NewChatMessage(username, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Type:      TypeMessage,
		Username:  username,
		Text:      text,
		Timestamp: FormatTimestamp(at),
	}
}

// NewUserList builds a roster broadcast.
func NewUserList(users []string) UserList {
	return UserList{Type: TypeUserList, Users: users}
}

// NewErrorMessage builds an error reply.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

// NewPong builds a ping reply. Both timestamps carry the same instant.
func NewPong(id string, at time.Time) Pong {
	ts := FormatTimestamp(at)
	return Pong{
		Type:       TypePong,
		Timestamp:  ts,
		ID:         id,
		ServerTime: ts,
	}
}

// FormatTimestamp renders an ISO-8601 UTC instant with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// InboundKind classifies a successfully parsed client frame.
type InboundKind int

const (
	// KindIgnored is a structurally valid frame the server takes no action
	// on: unknown type, or a known type missing its required fields.
	KindIgnored InboundKind = iota
	// KindChat is {type:"message", text} with non-empty text.
	KindChat
	// KindPing is {type:"ping", id}.
	KindPing
)

// Inbound is the parsed form of a client frame.
type Inbound struct {
	Kind InboundKind
	Text string
	ID   string
}

type inboundEnvelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
	ID   string `json:"id"`
}

// ParseInbound parses a client text frame. A non-nil error means the frame is
// malformed (not a JSON object) and the sender should receive an error reply;
// it is never a reason to drop the connection.
func ParseInbound(data []byte) (Inbound, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, err
	}

	switch env.Type {
	case TypeMessage:
		if env.Text == "" {
			return Inbound{Kind: KindIgnored}, nil
		}
		return Inbound{Kind: KindChat, Text: env.Text}, nil
	case TypePing:
		return Inbound{Kind: KindPing, ID: env.ID}, nil
	default:
		return Inbound{Kind: KindIgnored}, nil
	}
}
