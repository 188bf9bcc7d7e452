package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"intake_bot/internal/entities"
)

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.deps.Groups.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "groups")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// UpsertGroup registers a group or updates its settings
func (h *Handler) UpsertGroup(c *gin.Context) {
	var payload struct {
		GroupID          string `json:"group_id" binding:"required"`
		GroupName        string `json:"group_name"`
		IsActive         *bool  `json:"is_active"`
		AutoReply        *bool  `json:"auto_reply"`
		RequireAllFields bool   `json:"require_all_fields"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidGroupID(payload.GroupID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id must look like 120363000000@g.us"})
		return
	}
	if !ValidateLength(payload.GroupName, 0, MaxGroupNameLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_name too long"})
		return
	}

	group := entities.WhatsAppGroup{
		GroupID:          payload.GroupID,
		GroupName:        SanitizeString(payload.GroupName),
		IsActive:         payload.IsActive == nil || *payload.IsActive,
		AutoReply:        payload.AutoReply == nil || *payload.AutoReply,
		RequireAllFields: payload.RequireAllFields,
	}
	if err := h.deps.Groups.Upsert(c.Request.Context(), &group); err != nil {
		h.respondError(c, err, "group")
		return
	}
	h.log.Info().Str("group_id", group.GroupID).Bool("active", group.IsActive).Msg("group saved")
	c.JSON(http.StatusOK, group)
}

func (h *Handler) ToggleGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	if !ValidGroupID(groupID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return
	}

	active, err := h.deps.Groups.ToggleActive(c.Request.Context(), groupID)
	if err != nil {
		h.respondError(c, err, "group")
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "is_active": active})
}

func (h *Handler) ListBotResponses(c *gin.Context) {
	responses, err := h.deps.Responses.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "bot responses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses, "defaults": entities.DefaultResponses})
}

func (h *Handler) UpsertBotResponse(c *gin.Context) {
	var payload struct {
		Trigger         string `json:"trigger" binding:"required"`
		MessageTemplate string `json:"message_template" binding:"required"`
		IsActive        *bool  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !entities.ValidTrigger(payload.Trigger) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown trigger"})
		return
	}
	template := SanitizeString(strings.TrimSpace(payload.MessageTemplate))
	if !ValidateLength(template, 1, MaxTemplateLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_template must be 1-4096 characters"})
		return
	}

	resp := entities.BotResponse{
		Trigger:         payload.Trigger,
		MessageTemplate: template,
		IsActive:        payload.IsActive == nil || *payload.IsActive,
	}
	if err := h.deps.Responses.Upsert(c.Request.Context(), &resp); err != nil {
		h.respondError(c, err, "bot response")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteBotResponse(c *gin.Context) {
	trigger := c.Param("trigger")
	if err := h.deps.Responses.Delete(c.Request.Context(), trigger); err != nil {
		h.respondError(c, err, "bot response")
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage delivers a manual message through the configured transport
func (h *Handler) SendMessage(c *gin.Context) {
	if h.deps.Messenger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}

	var payload struct {
		To      string `json:"to" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	to := strings.TrimSpace(payload.To)
	if !ValidPhone(to) && !ValidGroupID(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a phone number or group id"})
		return
	}
	message := SanitizeString(payload.Message)
	if !ValidateLength(message, 1, MaxOutgoingLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must be 1-4096 characters"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.deps.Messenger.SendMessage(ctx, strings.TrimPrefix(to, "+"), message); err != nil {
		h.log.Error().Err(err).Str("to", to).Msg("manual send failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "to": to})
}

func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	if h.deps.Device == nil {
		c.JSON(http.StatusOK, gin.H{
			"linked_device": false,
			"cloud_api":     h.deps.Messenger != nil,
		})
		return
	}

	st := h.deps.Device.Status()
	c.JSON(http.StatusOK, gin.H{
		"linked_device": st.Enabled,
		"cloud_api":     h.deps.ReadMarker != nil,
		"logged_in":     st.LoggedIn,
		"connected":     st.Connected,
		"phone":         st.Phone,
		"name":          st.Name,
		"has_qr":        st.HasQR,
	})
}

// GetWhatsAppQR renders the pending pairing code as a PNG
func (h *Handler) GetWhatsAppQR(c *gin.Context) {
	if h.deps.Device == nil {
		c.String(http.StatusServiceUnavailable, "Linked device not enabled")
		return
	}

	code := h.deps.Device.QR()
	if code == "" {
		if h.deps.Device.Status().LoggedIn {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		h.log.Error().Err(err).Msg("qr encode failed")
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	if h.deps.Device == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Linked device not enabled"})
		return
	}
	if err := h.deps.Device.Logout(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("whatsapp logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
