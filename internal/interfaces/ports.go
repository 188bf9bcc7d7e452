package interfaces

import (
	"context"
	"time"

	"intake_bot/internal/entities"
)

// Messenger delivers a text reply to a WhatsApp number or group
type Messenger interface {
	SendMessage(ctx context.Context, to, content string) error
}

// Notifier tells admins about newly stored forms
type Notifier interface {
	NotifyForm(ctx context.Context, form entities.IntakeForm) error
}

// IntakeFormStore is the storage the ingestion flow needs for forms
type IntakeFormStore interface {
	Create(ctx context.Context, form *entities.IntakeForm) error
	ExistsByMessageID(ctx context.Context, messageID string) (bool, error)
}

type MessageLogStore interface {
	Create(ctx context.Context, entry *entities.MessageLog) error
}

type GroupStore interface {
	// GetActive returns nil when the group is unknown or inactive
	GetActive(ctx context.Context, groupID string) (*entities.WhatsAppGroup, error)
	RecordForm(ctx context.Context, groupID string, at time.Time) error
}

type BotResponseStore interface {
	// GetActive returns nil when no active template exists for trigger
	GetActive(ctx context.Context, trigger string) (*entities.BotResponse, error)
}
