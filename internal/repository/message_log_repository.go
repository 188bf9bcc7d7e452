package repository

import (
	"context"
	"fmt"
	"time"

	"intake_bot/internal/entities"
)

type MessageLogRepository struct {
	db DB
}

func NewMessageLogRepository(db DB) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

type LogFilter struct {
	MessageType string
	Phone       string
	Processed   *bool
	Page
}

const logColumns = `id, message_id, from_number, from_name, timestamp, is_group_message, group_id, group_name,
	message_type, content, was_processed, intake_form_id, processing_notes, created_at`

func scanLog(row rowScanner) (entities.MessageLog, error) {
	var l entities.MessageLog
	err := row.Scan(&l.ID, &l.MessageID, &l.FromNumber, &l.FromName, &l.Timestamp, &l.IsGroup, &l.GroupID, &l.GroupName,
		&l.MessageType, &l.Content, &l.WasProcessed, &l.IntakeFormID, &l.ProcessingNotes, &l.CreatedAt)
	return l, err
}

// Create writes an audit entry. A message id that is already logged is left untouched.
func (r *MessageLogRepository) Create(ctx context.Context, entry *entities.MessageLog) error {
	content := entry.Content
	if runes := []rune(content); len(runes) > entities.MaxLoggedContent {
		content = string(runes[:entities.MaxLoggedContent])
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO message_logs (message_id, from_number, from_name, timestamp, is_group_message, group_id, group_name,
			message_type, content, was_processed, intake_form_id, processing_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (message_id) DO NOTHING`,
		entry.MessageID, entry.FromNumber, entry.FromName, entry.Timestamp, entry.IsGroup, entry.GroupID, entry.GroupName,
		entry.MessageType, content, entry.WasProcessed, entry.IntakeFormID, entry.ProcessingNotes,
	)
	if err != nil {
		return fmt.Errorf("insert message log %s: %w", entry.MessageID, err)
	}
	return nil
}

// List returns one page of log entries, newest first, and the total match count
func (r *MessageLogRepository) List(ctx context.Context, filter LogFilter) ([]entities.MessageLog, int, error) {
	w := &whereBuilder{}
	if filter.MessageType != "" {
		w.add("message_type = $%d", filter.MessageType)
	}
	if filter.Phone != "" {
		w.add("from_number LIKE $%d", "%"+filter.Phone+"%")
	}
	if filter.Processed != nil {
		w.add("was_processed = $%d", *filter.Processed)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM message_logs"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count message logs: %w", err)
	}

	p := filter.Page.normalized()
	suffix, args := w.page(p.Limit, p.Offset)
	rows, err := r.db.Query(ctx, "SELECT "+logColumns+" FROM message_logs"+w.String()+" ORDER BY timestamp DESC, id DESC"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list message logs: %w", err)
	}
	defer rows.Close()

	logs := []entities.MessageLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func (r *MessageLogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM message_logs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count message logs: %w", err)
	}
	return n, nil
}

func (r *MessageLogRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM message_logs WHERE timestamp >= $1", since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count message logs since %s: %w", since.Format(time.RFC3339), err)
	}
	return n, nil
}
