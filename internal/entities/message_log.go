package entities

import "time"

// Message log classifications
const (
	LogTypeIntakeForm = "intake_form"
	LogTypeChat       = "chat"
	LogTypeMedia      = "media"
	LogTypeReaction   = "reaction"
	LogTypeSystem     = "system"
	LogTypeUnknown    = "unknown"
)

// MaxLoggedContent caps how much of a message body is kept in the audit log
const MaxLoggedContent = 5000

// MessageLog is the audit record written for every incoming message
type MessageLog struct {
	ID              int64     `json:"id"`
	MessageID       string    `json:"message_id"`
	FromNumber      string    `json:"from_number"`
	FromName        string    `json:"from_name"`
	Timestamp       time.Time `json:"timestamp"`
	IsGroup         bool      `json:"is_group_message"`
	GroupID         string    `json:"group_id"`
	GroupName       string    `json:"group_name"`
	MessageType     string    `json:"message_type"`
	Content         string    `json:"content"`
	WasProcessed    bool      `json:"was_processed"`
	IntakeFormID    *int64    `json:"intake_form,omitempty"`
	ProcessingNotes string    `json:"processing_notes"`
	CreatedAt       time.Time `json:"created_at"`
}
