package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"intake_bot/internal/entities"
)

// BotResponseRepository stores the editable reply templates
type BotResponseRepository struct {
	db DB
}

func NewBotResponseRepository(db DB) *BotResponseRepository {
	return &BotResponseRepository{db: db}
}

const responseColumns = "id, trigger, message_template, is_active, created_at, updated_at"

func scanResponse(row rowScanner) (entities.BotResponse, error) {
	var b entities.BotResponse
	err := row.Scan(&b.ID, &b.Trigger, &b.MessageTemplate, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// GetActive returns the active template for trigger, nil when there is none
func (r *BotResponseRepository) GetActive(ctx context.Context, trigger string) (*entities.BotResponse, error) {
	b, err := scanResponse(r.db.QueryRow(ctx,
		"SELECT "+responseColumns+" FROM bot_responses WHERE trigger = $1 AND is_active", trigger))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bot response %s: %w", trigger, err)
	}
	return &b, nil
}

func (r *BotResponseRepository) List(ctx context.Context) ([]entities.BotResponse, error) {
	rows, err := r.db.Query(ctx, "SELECT "+responseColumns+" FROM bot_responses ORDER BY trigger")
	if err != nil {
		return nil, fmt.Errorf("list bot responses: %w", err)
	}
	defer rows.Close()

	out := []entities.BotResponse{}
	for rows.Next() {
		b, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot response: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Upsert creates or replaces the template for b.Trigger
func (r *BotResponseRepository) Upsert(ctx context.Context, b *entities.BotResponse) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO bot_responses (trigger, message_template, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (trigger) DO UPDATE SET
			message_template = EXCLUDED.message_template,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`,
		b.Trigger, b.MessageTemplate, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert bot response %s: %w", b.Trigger, err)
	}
	return nil
}

func (r *BotResponseRepository) Delete(ctx context.Context, trigger string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM bot_responses WHERE trigger = $1", trigger)
	if err != nil {
		return fmt.Errorf("delete bot response %s: %w", trigger, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
