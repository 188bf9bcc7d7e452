package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"intake_bot/internal/entities"
	"intake_bot/internal/infrastructure"
	"intake_bot/internal/interfaces"
	"intake_bot/internal/repository"
	"intake_bot/internal/usecases"
)

// MessageHandler processes one incoming chat message
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg entities.Message) (usecases.Outcome, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type FormStore interface {
	List(ctx context.Context, filter repository.FormFilter) ([]entities.IntakeForm, int, error)
	GetByID(ctx context.Context, id int64) (*entities.IntakeForm, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, filter repository.FormFilter, out io.Writer) (int, error)
}

type LogStore interface {
	List(ctx context.Context, filter repository.LogFilter) ([]entities.MessageLog, int, error)
}

type GroupAdmin interface {
	List(ctx context.Context) ([]entities.WhatsAppGroup, error)
	Upsert(ctx context.Context, g *entities.WhatsAppGroup) error
	ToggleActive(ctx context.Context, groupID string) (bool, error)
}

type ResponseAdmin interface {
	List(ctx context.Context) ([]entities.BotResponse, error)
	Upsert(ctx context.Context, b *entities.BotResponse) error
	Delete(ctx context.Context, trigger string) error
}

type StatsProvider interface {
	Stats(ctx context.Context) (*usecases.DashboardStats, error)
}

// LinkedDevice is the whatsmeow session as seen by the admin API
type LinkedDevice interface {
	Status() infrastructure.LinkedDeviceStatus
	QR() string
	Logout(ctx context.Context) error
}

// ReadMarker marks Cloud API messages as read
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// Deps are the collaborators of the HTTP layer. Messenger, ReadMarker,
// Device and Telegram may be nil when the matching integration is off.
type Deps struct {
	Intake    MessageHandler
	Auth      Authenticator
	Forms     FormStore
	Logs      LogStore
	Groups    GroupAdmin
	Responses ResponseAdmin
	Dashboard StatsProvider

	Messenger  interfaces.Messenger
	ReadMarker ReadMarker
	Device     LinkedDevice
	Telegram   TelegramStatus

	VerifyToken  string
	AppSecret    string
	MaxBodyBytes int64
}

type Handler struct {
	deps Deps
	log  zerolog.Logger
}

func NewHandler(deps Deps, log zerolog.Logger) *Handler {
	return &Handler{deps: deps, log: log.With().Str("component", "http").Logger()}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	maxBody := h.deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	r.Use(RequestID())
	r.Use(RequestLogger(h.log))
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxBody))
	r.Use(middleware.CORSMiddleware())

	// Public Routes
	r.GET("/api/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/webhook/whatsapp", h.VerifyWhatsAppWebhook)
	r.POST("/webhook/whatsapp", h.HandleWhatsAppWebhook)
	r.POST("/api/auth/login", h.Login)

	// Web chat intake injects messages into the pipeline, so it needs a session
	web := r.Group("/webhook")
	web.Use(middleware.AuthRequired())
	web.Use(middleware.RateLimitPerUser(5, 10))
	{
		web.POST("/web", h.HandleWebMessage)
	}

	// Protected Dashboard Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/dashboard", h.GetDashboard)

		api.GET("/intake-forms", h.ListForms)
		api.GET("/intake-forms/export", h.ExportForms)
		api.GET("/intake-forms/:id", h.GetForm)
		api.PATCH("/intake-forms/:id/status", h.UpdateFormStatus)
		api.DELETE("/intake-forms/:id", h.DeleteForm)

		api.GET("/message-logs", h.ListMessageLogs)

		api.POST("/parse", h.ParseMessage)

		api.GET("/groups", h.ListGroups)
		api.GET("/bot-responses", h.ListBotResponses)
		api.GET("/whatsapp/status", h.GetWhatsAppStatus)
		api.GET("/whatsapp/qr", h.GetWhatsAppQR)
		api.GET("/telegram/status", h.GetTelegramStatus)
	}

	// Admin-only Routes
	admin := r.Group("/api")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/groups", h.UpsertGroup)
		admin.POST("/groups/:group_id/toggle", h.ToggleGroup)
		admin.PUT("/bot-responses", h.UpsertBotResponse)
		admin.DELETE("/bot-responses/:trigger", h.DeleteBotResponse)
		admin.POST("/send-message", h.SendMessage)
		admin.POST("/whatsapp/logout", h.LogoutWhatsApp)
		admin.POST("/telegram/test", h.SendTelegramTest)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := h.deps.Auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
	if errors.Is(err, usecases.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// HandleWebMessage is a test ingress that accepts {from, content}
func (h *Handler) HandleWebMessage(c *gin.Context) {
	var payload struct {
		ID      string `json:"id"`
		From    string `json:"from" binding:"required"`
		Name    string `json:"name"`
		Content string `json:"content"`
		GroupID string `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.ID == "" {
		payload.ID = "web-" + uuid.NewString()
	}

	msg := entities.Message{
		ID:        payload.ID,
		From:      payload.From,
		FromName:  payload.Name,
		Content:   SanitizeString(payload.Content),
		Type:      entities.MessageTypeText,
		Platform:  "web",
		Timestamp: time.Now(),
		GroupID:   payload.GroupID,
	}

	outcome, err := h.deps.Intake.HandleMessage(c.Request.Context(), msg)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", msg.ID).Msg("web message failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed", "outcome": outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "message_id": msg.ID, "outcome": outcome})
}

// respondError maps repository errors to status codes
func (h *Handler) respondError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg(what + " request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
