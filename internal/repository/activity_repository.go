package repository

import (
	"context"
	"fmt"
	"time"
)

// ActivityRepository reports day-by-day traffic from the message log
type ActivityRepository struct {
	db DB
}

type DailyActivity struct {
	Date             time.Time `json:"date"`
	MessagesReceived int       `json:"messages_received"`
	FormsStored      int       `json:"forms_stored"`
}

func NewActivityRepository(db DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Daily returns one row per day that had traffic, oldest first, for the last days days
func (r *ActivityRepository) Daily(ctx context.Context, days int) ([]DailyActivity, error) {
	if days <= 0 {
		days = 7
	}

	rows, err := r.db.Query(ctx, `
		SELECT DATE(timestamp) AS day,
			COUNT(*) AS received,
			COUNT(*) FILTER (WHERE intake_form_id IS NOT NULL) AS stored
		FROM message_logs
		WHERE timestamp >= CURRENT_DATE - ($1::int - 1)
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	defer rows.Close()

	out := []DailyActivity{}
	for rows.Next() {
		var d DailyActivity
		if err := rows.Scan(&d.Date, &d.MessagesReceived, &d.FormsStored); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
