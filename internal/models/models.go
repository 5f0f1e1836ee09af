package models

// ConnectionState is the lifecycle state of a chat session.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ChatMessage is a room message as handed to the consumer.
type ChatMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
	Time    string `json:"time"` // Server formatted, passed through untouched
}

// ClientMessage represents a message sent from the client to the server.
// It is the only outbound shape of the protocol.
type ClientMessage struct {
	Message string `json:"message"`
}

// RoomInfo describes a room and who is currently in it.
type RoomInfo struct {
	ID    string   `json:"id"`
	Users []string `json:"users"`
}
