package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"intake_bot/internal/entities"
)

type IntakeFormRepository struct {
	db DB
}

func NewIntakeFormRepository(db DB) *IntakeFormRepository {
	return &IntakeFormRepository{db: db}
}

// FormFilter narrows List. Zero values mean "any".
type FormFilter struct {
	Status  string
	Project string
	School  string
	GroupID string
	From    *time.Time
	To      *time.Time
	Page
}

type ProjectCount struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

const formColumns = `id, name, phone, email, project, notes, school, teacher, grade, subject,
	lesson_titles, lesson_references, whatsapp_message_id, whatsapp_from, whatsapp_timestamp,
	group_id, group_name, status, raw_message, confidence, created_at, updated_at`

func scanForm(row rowScanner) (entities.IntakeForm, error) {
	var f entities.IntakeForm
	err := row.Scan(
		&f.ID, &f.Name, &f.Phone, &f.Email, &f.Project, &f.Notes, &f.School, &f.Teacher, &f.Grade, &f.Subject,
		&f.LessonTitles, &f.LessonReferences, &f.MessageID, &f.From, &f.SentAt,
		&f.GroupID, &f.GroupName, &f.Status, &f.RawMessage, &f.Confidence, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

// Create inserts form and fills ID and timestamps. A second form with the
// same WhatsApp message id returns ErrDuplicate.
func (r *IntakeFormRepository) Create(ctx context.Context, form *entities.IntakeForm) error {
	if form.Status == "" {
		form.Status = entities.FormStatusNew
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO intake_forms (name, phone, email, project, notes, school, teacher, grade, subject,
			lesson_titles, lesson_references, whatsapp_message_id, whatsapp_from, whatsapp_timestamp,
			group_id, group_name, status, raw_message, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`,
		form.Name, form.Phone, form.Email, form.Project, form.Notes, form.School, form.Teacher, form.Grade, form.Subject,
		form.LessonTitles, form.LessonReferences, form.MessageID, form.From, form.SentAt,
		form.GroupID, form.GroupName, form.Status, form.RawMessage, form.Confidence,
	).Scan(&form.ID, &form.CreatedAt, &form.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert intake form: %w", err)
	}
	return nil
}

func (r *IntakeFormRepository) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM intake_forms WHERE whatsapp_message_id = $1)", messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check intake form %s: %w", messageID, err)
	}
	return exists, nil
}

func (r *IntakeFormRepository) GetByID(ctx context.Context, id int64) (*entities.IntakeForm, error) {
	f, err := scanForm(r.db.QueryRow(ctx, "SELECT "+formColumns+" FROM intake_forms WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intake form %d: %w", id, err)
	}
	return &f, nil
}

func (f FormFilter) where() *whereBuilder {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.Project != "" {
		w.add("project ILIKE $%d", "%"+f.Project+"%")
	}
	if f.School != "" {
		w.add("school ILIKE $%d", "%"+f.School+"%")
	}
	if f.GroupID != "" {
		w.add("group_id = $%d", f.GroupID)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at < $%d", *f.To)
	}
	return w
}

// List returns one page of matching forms, newest first, and the total match count
func (r *IntakeFormRepository) List(ctx context.Context, filter FormFilter) ([]entities.IntakeForm, int, error) {
	w := filter.where()

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM intake_forms"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count intake forms: %w", err)
	}

	p := filter.Page.normalized()
	suffix, args := w.page(p.Limit, p.Offset)
	rows, err := r.db.Query(ctx, "SELECT "+formColumns+" FROM intake_forms"+w.String()+" ORDER BY created_at DESC, id DESC"+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list intake forms: %w", err)
	}
	defer rows.Close()

	forms := []entities.IntakeForm{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan intake form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, total, rows.Err()
}

func (r *IntakeFormRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE intake_forms SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update intake form %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *IntakeFormRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM intake_forms WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete intake form %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *IntakeFormRepository) CountsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, "SELECT status, COUNT(*) FROM intake_forms GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// TopProjects returns the most frequent non-empty project names
func (r *IntakeFormRepository) TopProjects(ctx context.Context, limit int) ([]ProjectCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT project, COUNT(*) AS n FROM intake_forms
		WHERE project <> ''
		GROUP BY project
		ORDER BY n DESC, project
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectCount{}
	for rows.Next() {
		var pc ProjectCount
		if err := rows.Scan(&pc.Project, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (r *IntakeFormRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM intake_forms").Scan(&n); err != nil {
		return 0, fmt.Errorf("count intake forms: %w", err)
	}
	return n, nil
}

func (r *IntakeFormRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM intake_forms WHERE created_at >= $1", since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count intake forms since %s: %w", since.Format(time.RFC3339), err)
	}
	return n, nil
}
