package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"intake_bot/internal/entities"
)

const signatureHeader = "X-Hub-Signature-256"

// Cloud API webhook payload, trimmed to the fields we read
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []webhookContact `json:"contacts"`
	Messages         []webhookMessage `json:"messages"`
}

type webhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type webhookMedia struct {
	Caption string `json:"caption"`
}

type webhookReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button,omitempty"`
	Interactive *struct {
		Type        string        `json:"type"`
		ButtonReply *webhookReply `json:"button_reply,omitempty"`
		ListReply   *webhookReply `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Image    *webhookMedia `json:"image,omitempty"`
	Video    *webhookMedia `json:"video,omitempty"`
	Audio    *webhookMedia `json:"audio,omitempty"`
	Document *webhookMedia `json:"document,omitempty"`
	Reaction *struct {
		Emoji string `json:"emoji"`
	} `json:"reaction,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	Group   *struct {
		ID      string `json:"id"`
		Subject string `json:"subject"`
	} `json:"group,omitempty"`
}

// VerifyWhatsAppWebhook answers the Cloud API subscription handshake
func (h *Handler) VerifyWhatsAppWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.deps.VerifyToken != "" &&
		hmac.Equal([]byte(token), []byte(h.deps.VerifyToken)) {
		h.log.Info().Msg("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}

	h.log.Warn().Str("mode", mode).Msg("webhook verification failed")
	c.String(http.StatusForbidden, "Verification failed")
}

// HandleWhatsAppWebhook receives message notifications. Once the body is
// authentic and valid JSON it always answers 200 so the platform does not retry.
func (h *Handler) HandleWhatsAppWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	if h.deps.AppSecret != "" && !validSignature(body, c.GetHeader(signatureHeader), h.deps.AppSecret) {
		h.log.Warn().Msg("webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	ctx := c.Request.Context()
	for _, msg := range payload.messages() {
		outcome, err := h.deps.Intake.HandleMessage(ctx, msg)
		if err != nil {
			h.log.Error().Err(err).Str("message_id", msg.ID).Str("outcome", string(outcome)).Msg("webhook message failed")
		}
		if h.deps.ReadMarker != nil && msg.Type == entities.MessageTypeText {
			if err := h.deps.ReadMarker.MarkRead(ctx, msg.ID); err != nil {
				h.log.Debug().Err(err).Str("message_id", msg.ID).Msg("mark read failed")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// validSignature checks header "sha256=<hex>" against HMAC-SHA256(body, secret)
func validSignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// messages flattens every message in the payload into domain messages
func (p webhookPayload) messages() []entities.Message {
	var out []entities.Message
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, ct := range change.Value.Contacts {
				names[ct.WaID] = ct.Profile.Name
			}
			for _, m := range change.Value.Messages {
				out = append(out, m.toEntity(names[m.From]))
			}
		}
	}
	return out
}

func (m webhookMessage) toEntity(fromName string) entities.Message {
	msg := entities.Message{
		ID:        m.ID,
		From:      m.From,
		FromName:  fromName,
		Type:      m.Type,
		Content:   m.content(),
		Platform:  "whatsapp",
		Timestamp: parseUnix(m.Timestamp),
		GroupID:   m.GroupID,
	}
	if m.Group != nil {
		if msg.GroupID == "" {
			msg.GroupID = m.Group.ID
		}
		msg.GroupName = m.Group.Subject
	}
	if msg.Type == "" {
		msg.Type = "unknown"
	}
	return msg
}

func (m webhookMessage) content() string {
	switch m.Type {
	case entities.MessageTypeText:
		if m.Text != nil {
			return m.Text.Body
		}
	case entities.MessageTypeButton:
		if m.Button != nil {
			return m.Button.Text
		}
	case entities.MessageTypeInteractive:
		if m.Interactive == nil {
			return ""
		}
		switch {
		case m.Interactive.ButtonReply != nil:
			return m.Interactive.ButtonReply.Title
		case m.Interactive.ListReply != nil:
			return m.Interactive.ListReply.Title
		}
	case entities.MessageTypeImage:
		return captionOr(m.Image, m.Type)
	case entities.MessageTypeVideo:
		return captionOr(m.Video, m.Type)
	case entities.MessageTypeAudio:
		return captionOr(m.Audio, m.Type)
	case entities.MessageTypeDocument:
		return captionOr(m.Document, m.Type)
	case entities.MessageTypeReaction:
		if m.Reaction != nil {
			return m.Reaction.Emoji
		}
	}
	return ""
}

func captionOr(media *webhookMedia, kind string) string {
	if media != nil && media.Caption != "" {
		return media.Caption
	}
	return "[" + kind + "]"
}

func parseUnix(ts string) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(sec, 0).UTC()
}
