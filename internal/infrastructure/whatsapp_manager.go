package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"intake_bot/internal/entities"
)

// MessageRouter receives every incoming linked-device message
type MessageRouter func(ctx context.Context, msg entities.Message)

// LinkedDeviceStatus is what the admin API shows about the paired phone
type LinkedDeviceStatus struct {
	Enabled   bool   `json:"enabled"`
	LoggedIn  bool   `json:"logged_in"`
	Connected bool   `json:"connected"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	HasQR     bool   `json:"has_qr"`
}

// deviceSession is the part of WhatsAppClient the manager drives
type deviceSession interface {
	Connect(ctx context.Context) error
	Logout(ctx context.Context) error
	Disconnect()
	GetQR() string
	IsLoggedIn() bool
	IsConnected() bool
	GetPhoneNumber() string
	GetName() string
	SendMessage(ctx context.Context, to, content string) error
}

const logoutTimeout = 15 * time.Second

// WhatsAppManager owns the linked-device session and feeds its messages to a router
type WhatsAppManager struct {
	baseDir string
	route   MessageRouter
	log     zerolog.Logger

	mu     sync.RWMutex
	client deviceSession
	ctx    context.Context
}

func NewWhatsAppManager(baseDir string, route MessageRouter, log zerolog.Logger) *WhatsAppManager {
	return &WhatsAppManager{
		baseDir: baseDir,
		route:   route,
		ctx:     context.Background(),
		log:     log.With().Str("component", "whatsapp_manager").Logger(),
	}
}

// Start opens the device store and connects. Messages are routed with ctx.
func (m *WhatsAppManager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create devices directory: %w", err)
	}

	client, err := NewWhatsAppClient(ctx, filepath.Join(m.baseDir, "session.db"), m.log)
	if err != nil {
		return err
	}
	client.AddHandler(m.handleEvent)

	m.mu.Lock()
	m.client = client
	m.ctx = ctx
	m.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect linked device: %w", err)
	}
	return nil
}

func (m *WhatsAppManager) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Message:
		msg, ok := ToMessage(e)
		if !ok {
			return
		}
		m.mu.RLock()
		ctx := m.ctx
		m.mu.RUnlock()
		m.route(ctx, msg)
	case *events.Connected:
		m.log.Info().Msg("linked device connected")
	case *events.LoggedOut:
		m.log.Warn().Msg("linked device logged out")
	}
}

// session returns the active device session, or nil before Start
func (m *WhatsAppManager) session() deviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *WhatsAppManager) QR() string {
	if c := m.session(); c != nil {
		return c.GetQR()
	}
	return ""
}

func (m *WhatsAppManager) Status() LinkedDeviceStatus {
	c := m.session()
	if c == nil {
		return LinkedDeviceStatus{}
	}
	return LinkedDeviceStatus{
		Enabled:   true,
		LoggedIn:  c.IsLoggedIn(),
		Connected: c.IsConnected(),
		Phone:     c.GetPhoneNumber(),
		Name:      c.GetName(),
		HasQR:     c.GetQR() != "",
	}
}

// Logout unpairs the phone and reconnects for a new QR code. The unpair call
// survives cancellation of ctx; pairing runs on the manager's context.
func (m *WhatsAppManager) Logout(ctx context.Context) error {
	c := m.session()
	if c == nil || !c.IsLoggedIn() {
		return nil
	}

	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := c.Logout(logoutCtx); err != nil {
		return fmt.Errorf("logout linked device: %w", err)
	}

	m.mu.RLock()
	pairCtx := m.ctx
	m.mu.RUnlock()
	if err := c.Connect(pairCtx); err != nil {
		return fmt.Errorf("reconnect for pairing: %w", err)
	}
	m.log.Info().Msg("linked device logged out, waiting for new pairing")
	return nil
}

// SendMessage sends through the linked device
func (m *WhatsAppManager) SendMessage(ctx context.Context, to, content string) error {
	c := m.session()
	if c == nil || !c.IsConnected() {
		return fmt.Errorf("linked device not connected")
	}
	return c.SendMessage(ctx, to, content)
}

func (m *WhatsAppManager) Stop() {
	if c := m.session(); c != nil {
		c.Disconnect()
	}
}
