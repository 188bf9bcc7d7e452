package entities

import "time"

// WhatsAppGroup is a group the bot listens to
type WhatsAppGroup struct {
	ID                 int64      `json:"id"`
	GroupID            string     `json:"group_id"`
	GroupName          string     `json:"group_name"`
	IsActive           bool       `json:"is_active"`
	AutoReply          bool       `json:"auto_reply"`
	RequireAllFields   bool       `json:"require_all_fields"`
	TotalFormsReceived int        `json:"total_forms_received"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
