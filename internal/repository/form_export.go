package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var exportHeaders = []string{
	"id", "created_at", "status", "name", "phone", "email", "project", "school", "teacher",
	"grade", "subject", "lesson_titles", "lesson_references", "notes",
	"group_id", "group_name", "whatsapp_from", "confidence",
}

// ExportCSV streams every form matching filter (ignoring paging) as CSV, oldest first
func (r *IntakeFormRepository) ExportCSV(ctx context.Context, filter FormFilter, out io.Writer) (int, error) {
	w := filter.where()
	rows, err := r.db.Query(ctx, "SELECT "+formColumns+" FROM intake_forms"+w.String()+" ORDER BY created_at, id", w.args...)
	if err != nil {
		return 0, fmt.Errorf("export intake forms: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(out)
	if err := cw.Write(exportHeaders); err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return n, fmt.Errorf("scan intake form: %w", err)
		}
		record := []string{
			strconv.FormatInt(f.ID, 10), f.CreatedAt.Format(time.RFC3339), f.Status,
			f.Name, f.Phone, f.Email, f.Project, f.School, f.Teacher,
			f.Grade, f.Subject, f.LessonTitles, f.LessonReferences, f.Notes,
			f.GroupID, f.GroupName, f.From, strconv.FormatFloat(f.Confidence, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	cw.Flush()
	return n, cw.Error()
}
