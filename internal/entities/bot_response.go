package entities

import (
	"strings"
	"time"
)

// Reply triggers
const (
	TriggerFormReceived   = "form_received"
	TriggerFormIncomplete = "form_incomplete"
	TriggerFormInvalid    = "form_invalid"
	TriggerHelp           = "help"
	TriggerWelcome        = "welcome"
)

// ValidTrigger reports whether t is a known reply trigger
func ValidTrigger(t string) bool {
	switch t {
	case TriggerFormReceived, TriggerFormIncomplete, TriggerFormInvalid, TriggerHelp, TriggerWelcome:
		return true
	}
	return false
}

// BotResponse is a configurable reply template. Placeholders look like {name}.
type BotResponse struct {
	ID              int64     `json:"id"`
	Trigger         string    `json:"trigger"`
	MessageTemplate string    `json:"message_template"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Format fills {placeholders}; unknown placeholders are left as-is
func (b BotResponse) Format(values map[string]string) string {
	if len(values) == 0 {
		return b.MessageTemplate
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(b.MessageTemplate)
}

// DefaultResponses are used when no active template is stored for a trigger
var DefaultResponses = map[string]string{
	TriggerFormReceived: "✅ *Form Received!*\n\n" +
		"Thank you, {name}!\n" +
		"Your request for *{project}* has been recorded.\n\n" +
		"We will process it shortly.",
	TriggerFormIncomplete: "⚠️ *Form Incomplete*\n\n" +
		"Your form is missing required fields:\n" +
		"• {missing_fields}\n\n" +
		"Please resend with all required information.",
	TriggerHelp: "To submit a request, send one message with one field per line, for example:\n\n" +
		"Name: Jane Smith\nProject: Science Fair\nSchool: Oak Elementary",
}
