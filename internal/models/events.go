package models

type ClientEventType string

const (
	ClientEventSetup      ClientEventType = "setup"
	ClientEventJoinChat   ClientEventType = "joinChat"
	ClientEventTyping     ClientEventType = "typing"
	ClientEventNewMessage ClientEventType = "newMessage"
)

// ClientEvent is a message sent from the client over the websocket.
type ClientEvent struct {
	Type   ClientEventType `json:"type"`
	ChatID string          `json:"chatId,omitempty"`
	Typing bool            `json:"typing,omitempty"`
	// Message is set for newMessage events: a client-side delivery hint
	// duplicating the REST-triggered fan-out.
	Message *Message `json:"message,omitempty"`
}

type ServerEventType string

const (
	ServerEventOnlineUsers     ServerEventType = "onlineUsers"
	ServerEventTyping          ServerEventType = "typing"
	ServerEventMessageReceived ServerEventType = "messageReceived"
)

// ServerEvent is a message pushed to the client over the websocket.
type ServerEvent struct {
	Type    ServerEventType `json:"type"`
	ChatID  string          `json:"chatId,omitempty"`
	UserID  string          `json:"userId,omitempty"`
	Typing  bool            `json:"typing,omitempty"`
	Users   []string        `json:"users,omitempty"`
	Message *Message        `json:"message,omitempty"`
}
