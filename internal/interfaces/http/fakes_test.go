package http

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"intake_bot/internal/entities"
	"intake_bot/internal/infrastructure"
	"intake_bot/internal/repository"
	"intake_bot/internal/usecases"
)

const testSecret = "test-secret"

type fakeIntake struct {
	mu       sync.Mutex
	messages []entities.Message
	outcome  usecases.Outcome
	err      error
}

func (f *fakeIntake) HandleMessage(_ context.Context, msg entities.Message) (usecases.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	if f.outcome == "" {
		return usecases.OutcomeChat, f.err
	}
	return f.outcome, f.err
}

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, username, password string) (string, error) {
	if username == "admin" && password == "secret" {
		return "signed-token", nil
	}
	return "", usecases.ErrInvalidCredentials
}

type fakeForms struct {
	forms      map[int64]entities.IntakeForm
	lastFilter repository.FormFilter
}

func (f *fakeForms) List(_ context.Context, filter repository.FormFilter) ([]entities.IntakeForm, int, error) {
	f.lastFilter = filter
	var out []entities.IntakeForm
	for _, form := range f.forms {
		out = append(out, form)
	}
	return out, len(out), nil
}

func (f *fakeForms) GetByID(_ context.Context, id int64) (*entities.IntakeForm, error) {
	form, ok := f.forms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &form, nil
}

func (f *fakeForms) UpdateStatus(_ context.Context, id int64, status string) error {
	form, ok := f.forms[id]
	if !ok {
		return repository.ErrNotFound
	}
	form.Status = status
	f.forms[id] = form
	return nil
}

func (f *fakeForms) Delete(_ context.Context, id int64) error {
	if _, ok := f.forms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.forms, id)
	return nil
}

func (f *fakeForms) ExportCSV(_ context.Context, filter repository.FormFilter, out io.Writer) (int, error) {
	f.lastFilter = filter
	fmt.Fprintln(out, "id,name,project")
	for _, form := range f.forms {
		fmt.Fprintf(out, "%d,%s,%s\n", form.ID, form.Name, form.Project)
	}
	return len(f.forms), nil
}

type fakeLogs struct {
	lastFilter repository.LogFilter
}

func (f *fakeLogs) List(_ context.Context, filter repository.LogFilter) ([]entities.MessageLog, int, error) {
	f.lastFilter = filter
	return []entities.MessageLog{{MessageID: "m1"}}, 1, nil
}

type fakeGroups struct {
	groups map[string]entities.WhatsAppGroup
}

func (f *fakeGroups) List(_ context.Context) ([]entities.WhatsAppGroup, error) {
	var out []entities.WhatsAppGroup
	for _, g := range f.groups {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGroups) Upsert(_ context.Context, g *entities.WhatsAppGroup) error {
	g.ID = int64(len(f.groups) + 1)
	f.groups[g.GroupID] = *g
	return nil
}

func (f *fakeGroups) ToggleActive(_ context.Context, groupID string) (bool, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return false, repository.ErrNotFound
	}
	g.IsActive = !g.IsActive
	f.groups[groupID] = g
	return g.IsActive, nil
}

type fakeResponses struct {
	saved map[string]entities.BotResponse
}

func (f *fakeResponses) List(_ context.Context) ([]entities.BotResponse, error) {
	var out []entities.BotResponse
	for _, r := range f.saved {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeResponses) Upsert(_ context.Context, b *entities.BotResponse) error {
	f.saved[b.Trigger] = *b
	return nil
}

func (f *fakeResponses) Delete(_ context.Context, trigger string) error {
	if _, ok := f.saved[trigger]; !ok {
		return repository.ErrNotFound
	}
	delete(f.saved, trigger)
	return nil
}

type fakeDashboard struct{}

func (fakeDashboard) Stats(_ context.Context) (*usecases.DashboardStats, error) {
	return &usecases.DashboardStats{TotalForms: 3, ByStatus: map[string]int{"new": 3}}, nil
}

type sent struct {
	to, content string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, to, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to, content})
	return f.err
}

type fakeReadMarker struct {
	ids []string
}

func (f *fakeReadMarker) MarkRead(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

type fakeDevice struct {
	status    infrastructure.LinkedDeviceStatus
	qr        string
	loggedOut bool
}

func (f *fakeDevice) Status() infrastructure.LinkedDeviceStatus {
	return f.status
}

func (f *fakeDevice) QR() string {
	return f.qr
}

func (f *fakeDevice) Logout(_ context.Context) error {
	f.loggedOut = true
	return nil
}

type fakeTelegram struct {
	notified []entities.IntakeForm
}

func (f *fakeTelegram) BotName() string { return "intake_admin_bot" }

func (f *fakeTelegram) NotifyForm(_ context.Context, form entities.IntakeForm) error {
	f.notified = append(f.notified, form)
	return nil
}

type testServer struct {
	router    *gin.Engine
	intake    *fakeIntake
	forms     *fakeForms
	logs      *fakeLogs
	groups    *fakeGroups
	responses *fakeResponses
	messenger *fakeMessenger
	reads     *fakeReadMarker
	device    *fakeDevice
	telegram  *fakeTelegram
}

// newTestServer wires every optional integration; adjust may override Deps
func newTestServer(t *testing.T, adjust func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		intake: &fakeIntake{},
		forms: &fakeForms{forms: map[int64]entities.IntakeForm{
			1: {ID: 1, Name: "Jane Smith", Project: "Science Fair", Status: entities.FormStatusNew},
		}},
		logs:      &fakeLogs{},
		groups:    &fakeGroups{groups: map[string]entities.WhatsAppGroup{}},
		responses: &fakeResponses{saved: map[string]entities.BotResponse{}},
		messenger: &fakeMessenger{},
		reads:     &fakeReadMarker{},
		device:    &fakeDevice{status: infrastructure.LinkedDeviceStatus{Enabled: true}},
		telegram:  &fakeTelegram{},
	}

	deps := Deps{
		Intake:       ts.intake,
		Auth:         fakeAuth{},
		Forms:        ts.forms,
		Logs:         ts.logs,
		Groups:       ts.groups,
		Responses:    ts.responses,
		Dashboard:    fakeDashboard{},
		Messenger:    ts.messenger,
		ReadMarker:   ts.reads,
		Device:       ts.device,
		Telegram:     ts.telegram,
		VerifyToken:  "verify-me",
		MaxBodyBytes: 1 << 20,
	}
	if adjust != nil {
		adjust(&deps)
	}

	ts.router = gin.New()
	SetupRoutes(ts.router, NewHandler(deps, zerolog.Nop()), NewMiddleware(testSecret))
	return ts
}

func testToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "tester",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}
