package entities

import "time"

// Intake form statuses
const (
	FormStatusNew        = "new"
	FormStatusProcessing = "processing"
	FormStatusCompleted  = "completed"
	FormStatusRejected   = "rejected"
)

// ValidFormStatus reports whether s is a known form status
func ValidFormStatus(s string) bool {
	switch s {
	case FormStatusNew, FormStatusProcessing, FormStatusCompleted, FormStatusRejected:
		return true
	}
	return false
}

// IntakeForm is a stored form submission
type IntakeForm struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Project          string    `json:"project"`
	Notes            string    `json:"notes"`
	School           string    `json:"school"`
	Teacher          string    `json:"teacher"`
	Grade            string    `json:"grade"`
	Subject          string    `json:"subject"`
	LessonTitles     string    `json:"lesson_titles"`
	LessonReferences string    `json:"lesson_references"`
	MessageID        string    `json:"whatsapp_message_id"`
	From             string    `json:"whatsapp_from"`
	SentAt           time.Time `json:"whatsapp_timestamp"`
	GroupID          string    `json:"group_id"`
	GroupName        string    `json:"group_name"`
	Status           string    `json:"status"`
	RawMessage       string    `json:"raw_message,omitempty"`
	Confidence       float64   `json:"confidence_score"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
