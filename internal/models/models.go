package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotParticipant     = errors.New("not a chat participant")
	ErrNotAdmin           = errors.New("not a chat admin")
	ErrNotGroup           = errors.New("not a group chat")
)

// User represents a user in the system. The password hash never leaves the
// auth/storage layers and is not part of this struct.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	LastSeen  int64  `json:"lastSeen"` // Unix timestamp (seconds)
	CreatedAt int64  `json:"createdAt"`
}

// Chat represents a conversation: either a 1-1 chat (IsGroup=false, exactly
// two participants) or a named group.
type Chat struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	IsGroup      bool     `json:"isGroup"`
	Participants []string `json:"participants"`
	// Owner is the user who created the group (primary admin).
	Owner     string   `json:"owner,omitempty"`
	Admins    []string `json:"admins,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	// LastSeq is the sequence number of the latest message. It doubles as
	// the latest-message pointer and orders backfills.
	LastSeq       int64    `json:"lastSeq"`
	LatestMessage *Message `json:"latestMessage,omitempty"`
	CreatedAt     int64    `json:"createdAt"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// HasParticipant reports whether userID is in the chat's participant list.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID is the owner or a promoted admin.
func (c *Chat) IsAdmin(userID string) bool {
	if c.Owner == userID {
		return true
	}
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// Message represents a chat message. Seq is assigned by the storage layer and
// is strictly increasing within a chat.
type Message struct {
	ID          string       `json:"id"`
	Seq         int64        `json:"seq"`
	ChatID      string       `json:"chatId"`
	SenderID    string       `json:"senderId"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   int64        `json:"timestamp"` // Unix timestamp (seconds)
}

type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	FileID   string `json:"fileId"`
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
