package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"intake_bot/internal/entities"
)

// TelegramStatus is the admin notifier as seen by the API
type TelegramStatus interface {
	BotName() string
	NotifyForm(ctx context.Context, form entities.IntakeForm) error
}

func (h *Handler) GetTelegramStatus(c *gin.Context) {
	if h.deps.Telegram == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"bot_name":  h.deps.Telegram.BotName(),
	})
}

// SendTelegramTest pushes a sample form summary to the admin chat
func (h *Handler) SendTelegramTest(c *gin.Context) {
	if h.deps.Telegram == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram not configured"})
		return
	}

	sample := entities.IntakeForm{
		ID:         0,
		Name:       "Test Submission",
		Project:    "Notification check",
		Phone:      "-",
		Status:     entities.FormStatusNew,
		Confidence: 1,
		CreatedAt:  time.Now(),
	}
	if err := h.deps.Telegram.NotifyForm(c.Request.Context(), sample); err != nil {
		h.log.Error().Err(err).Msg("telegram test failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to reach Telegram"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
