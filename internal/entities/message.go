package entities

import "time"

// Message types as reported by the messaging platform
const (
	MessageTypeText        = "text"
	MessageTypeButton      = "button"
	MessageTypeInteractive = "interactive"
	MessageTypeImage       = "image"
	MessageTypeVideo       = "video"
	MessageTypeAudio       = "audio"
	MessageTypeDocument    = "document"
	MessageTypeSticker     = "sticker"
	MessageTypeReaction    = "reaction"
)

type Message struct {
	ID        string
	From      string
	FromName  string
	Content   string
	Type      string    // e.g., "text", "image", "reaction"
	Platform  string    // e.g., "whatsapp", "web"
	Timestamp time.Time
	GroupID   string // empty for direct messages
	GroupName string
}

// IsGroup reports whether the message came from a group chat
func (m Message) IsGroup() bool {
	return m.GroupID != ""
}

type Response struct {
	Content string
}
