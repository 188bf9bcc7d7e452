package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_bot/internal/entities"
)

var formColumnNames = []string{
	"id", "name", "phone", "email", "project", "notes", "school", "teacher", "grade", "subject",
	"lesson_titles", "lesson_references", "whatsapp_message_id", "whatsapp_from", "whatsapp_timestamp",
	"group_id", "group_name", "status", "raw_message", "confidence", "created_at", "updated_at",
}

var testTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func addFormRow(rows *pgxmock.Rows, id int64, name, project string) *pgxmock.Rows {
	return rows.AddRow(
		id, name, "+1234", "a@b.co", project, "", "Oak Elementary", "", "5th", "",
		"", "", "wamid."+name, "237600000000", testTime,
		"g1@g.us", "Teachers", entities.FormStatusNew, "Name: "+name, 0.5, testTime, testTime,
	)
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestIntakeFormRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	form := &entities.IntakeForm{
		Name: "Jane", Project: "Robotics", MessageID: "wamid.1", From: "237600000000",
		SentAt: testTime, RawMessage: "Name: Jane\nProject: Robotics", Confidence: 2.0 / 11,
	}

	mock.ExpectQuery(q("INSERT INTO intake_forms")).
		WithArgs("Jane", "", "", "Robotics", "", "", "", "", "", "", "", "wamid.1", "237600000000", testTime,
			"", "", entities.FormStatusNew, form.RawMessage, form.Confidence).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), testTime, testTime))

	require.NoError(t, repo.Create(context.Background(), form))
	assert.Equal(t, int64(42), form.ID)
	assert.Equal(t, entities.FormStatusNew, form.Status)
	assert.Equal(t, testTime, form.CreatedAt)
}

func TestIntakeFormRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	mock.ExpectQuery(q("INSERT INTO intake_forms")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &entities.IntakeForm{MessageID: "wamid.1"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestIntakeFormRepository_ExistsByMessageID(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM intake_forms WHERE whatsapp_message_id = $1)")).
		WithArgs("wamid.1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIntakeFormRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	mock.ExpectQuery(q("FROM intake_forms WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(addFormRow(pgxmock.NewRows(formColumnNames), 7, "Jane", "Robotics"))
	mock.ExpectQuery(q("FROM intake_forms WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	form, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Jane", form.Name)
	assert.Equal(t, "Teachers", form.GroupName)
	assert.Equal(t, 0.5, form.Confidence)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIntakeFormRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	from := testTime.Add(-24 * time.Hour)
	filter := FormFilter{Status: "new", School: "oak", From: &from, Page: Page{Limit: 2, Offset: 4}}

	mock.ExpectQuery(q("SELECT COUNT(*) FROM intake_forms WHERE status = $1 AND school ILIKE $2 AND created_at >= $3")).
		WithArgs("new", "%oak%", from).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	rows := pgxmock.NewRows(formColumnNames)
	addFormRow(rows, 2, "Bob", "Garden")
	addFormRow(rows, 1, "Ann", "Robotics")
	mock.ExpectQuery(q("ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5")).
		WithArgs("new", "%oak%", from, 2, 4).
		WillReturnRows(rows)

	forms, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, forms, 2)
	assert.Equal(t, "Bob", forms[0].Name)
	assert.Equal(t, int64(1), forms[1].ID)
}

func TestIntakeFormRepository_UpdateStatusAndDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	mock.ExpectExec(q("UPDATE intake_forms SET status = $1")).
		WithArgs(entities.FormStatusCompleted, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q("UPDATE intake_forms SET status = $1")).
		WithArgs(entities.FormStatusCompleted, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(q("DELETE FROM intake_forms WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ctx := context.Background()
	assert.NoError(t, repo.UpdateStatus(ctx, 1, entities.FormStatusCompleted))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 2, entities.FormStatusCompleted), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 3), ErrNotFound)
}

func TestIntakeFormRepository_Stats(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(q("SELECT status, COUNT(*) FROM intake_forms GROUP BY status")).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).AddRow("new", 3).AddRow("completed", 1))
	mock.ExpectQuery(q("GROUP BY project")).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"project", "n"}).AddRow("Robotics", 2))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM intake_forms WHERE created_at >= $1")).
		WithArgs(testTime).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	counts, err := repo.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"new": 3, "completed": 1}, counts)

	top, err := repo.TopProjects(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []ProjectCount{{Project: "Robotics", Count: 2}}, top)

	n, err := repo.CountSince(ctx, testTime)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIntakeFormRepository_ExportCSV(t *testing.T) {
	mock := newMock(t)
	repo := NewIntakeFormRepository(mock)

	rows := pgxmock.NewRows(formColumnNames)
	addFormRow(rows, 1, "Ann", "Robotics, Phase 2")
	mock.ExpectQuery(q("FROM intake_forms WHERE status = $1 ORDER BY created_at, id")).
		WithArgs("new").
		WillReturnRows(rows)

	var buf bytes.Buffer
	n, err := repo.ExportCSV(context.Background(), FormFilter{Status: "new"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "Ann", records[1][3])
	assert.Equal(t, "Robotics, Phase 2", records[1][6])
	assert.Equal(t, "0.50", records[1][17])
}
