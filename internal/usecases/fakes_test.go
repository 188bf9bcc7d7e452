package usecases

import (
	"context"
	"sync"
	"time"

	"intake_bot/internal/entities"
	"intake_bot/internal/repository"
)

type fakeForms struct {
	mu      sync.Mutex
	forms   []entities.IntakeForm
	byMsgID map[string]bool
	err     error
}

func newFakeForms() *fakeForms {
	return &fakeForms{byMsgID: make(map[string]bool)}
}

func (f *fakeForms) Create(_ context.Context, form *entities.IntakeForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.byMsgID[form.MessageID] {
		return repository.ErrDuplicate
	}
	form.ID = int64(len(f.forms) + 1)
	f.forms = append(f.forms, *form)
	f.byMsgID[form.MessageID] = true
	return nil
}

func (f *fakeForms) ExistsByMessageID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byMsgID[id], nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []entities.MessageLog
}

func (f *fakeLogs) Create(_ context.Context, e *entities.MessageLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLogs) last() entities.MessageLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

type fakeGroups struct {
	groups   map[string]*entities.WhatsAppGroup
	recorded []string
}

func (f *fakeGroups) GetActive(_ context.Context, id string) (*entities.WhatsAppGroup, error) {
	g, ok := f.groups[id]
	if !ok || !g.IsActive {
		return nil, nil
	}
	return g, nil
}

func (f *fakeGroups) RecordForm(_ context.Context, id string, _ time.Time) error {
	f.recorded = append(f.recorded, id)
	return nil
}

type fakeResponses map[string]*entities.BotResponse

func (f fakeResponses) GetActive(_ context.Context, trigger string) (*entities.BotResponse, error) {
	return f[trigger], nil
}

type sentMessage struct {
	to, content string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) SendMessage(_ context.Context, to, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to, content})
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	forms []entities.IntakeForm
}

func (f *fakeNotifier) NotifyForm(_ context.Context, form entities.IntakeForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, form)
	return nil
}
