package models

// Client-to-server websocket event types.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
)

// Server-to-client websocket event types.
const (
	EventPreviousMessages = "previousMessages"
	EventNewMessage       = "newMessage"
	EventUserJoined       = "userJoined"
	EventError            = "error"
)

// ClientEvent is a decoded client-to-server websocket frame.
type ClientEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Text   string `json:"text,omitempty"`
}

// RoomEvent is emitted over websocket connections.
type RoomEvent struct {
	Type     string    `json:"type"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	User     string    `json:"user,omitempty"`
	Error    string    `json:"error,omitempty"`
}
