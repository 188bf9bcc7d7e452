package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"intake_bot/internal/entities"
)

type GroupRepository struct {
	db DB
}

func NewGroupRepository(db DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, group_id, group_name, is_active, auto_reply, require_all_fields,
	total_forms_received, last_message_at, created_at, updated_at`

func scanGroup(row rowScanner) (entities.WhatsAppGroup, error) {
	var g entities.WhatsAppGroup
	err := row.Scan(&g.ID, &g.GroupID, &g.GroupName, &g.IsActive, &g.AutoReply, &g.RequireAllFields,
		&g.TotalFormsReceived, &g.LastMessageAt, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GetActive returns the group if it is registered and active, nil otherwise
func (r *GroupRepository) GetActive(ctx context.Context, groupID string) (*entities.WhatsAppGroup, error) {
	g, err := scanGroup(r.db.QueryRow(ctx,
		"SELECT "+groupColumns+" FROM whatsapp_groups WHERE group_id = $1 AND is_active", groupID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return &g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]entities.WhatsAppGroup, error) {
	rows, err := r.db.Query(ctx, "SELECT "+groupColumns+" FROM whatsapp_groups ORDER BY group_name, id")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []entities.WhatsAppGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Upsert registers a group or updates its settings, keeping its counters
func (r *GroupRepository) Upsert(ctx context.Context, g *entities.WhatsAppGroup) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO whatsapp_groups (group_id, group_name, is_active, auto_reply, require_all_fields)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id) DO UPDATE SET
			group_name = EXCLUDED.group_name,
			is_active = EXCLUDED.is_active,
			auto_reply = EXCLUDED.auto_reply,
			require_all_fields = EXCLUDED.require_all_fields,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, total_forms_received, last_message_at, created_at, updated_at`,
		g.GroupID, g.GroupName, g.IsActive, g.AutoReply, g.RequireAllFields,
	).Scan(&g.ID, &g.TotalFormsReceived, &g.LastMessageAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert group %s: %w", g.GroupID, err)
	}
	return nil
}

// ToggleActive flips is_active and returns the new value
func (r *GroupRepository) ToggleActive(ctx context.Context, groupID string) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx, `
		UPDATE whatsapp_groups SET is_active = NOT is_active, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = $1 RETURNING is_active`, groupID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle group %s: %w", groupID, err)
	}
	return active, nil
}

// RecordForm bumps the group's form counter and last activity time
func (r *GroupRepository) RecordForm(ctx context.Context, groupID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE whatsapp_groups
		SET total_forms_received = total_forms_received + 1, last_message_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = $1`, groupID, at)
	if err != nil {
		return fmt.Errorf("record form for group %s: %w", groupID, err)
	}
	return nil
}

func (r *GroupRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM whatsapp_groups WHERE is_active").Scan(&n); err != nil {
		return 0, fmt.Errorf("count active groups: %w", err)
	}
	return n, nil
}
