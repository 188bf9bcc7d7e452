package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultGraphBaseURL = "https://graph.facebook.com"

// CloudAPIClient sends messages through the WhatsApp Business Cloud API
type CloudAPIClient struct {
	accessToken   string
	phoneNumberID string
	apiVersion    string
	baseURL       string
	httpClient    *http.Client
	log           zerolog.Logger
}

func NewCloudAPIClient(accessToken, phoneNumberID, apiVersion string, log zerolog.Logger) *CloudAPIClient {
	if apiVersion == "" {
		apiVersion = "v18.0"
	}
	return &CloudAPIClient{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		apiVersion:    apiVersion,
		baseURL:       defaultGraphBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           log.With().Str("component", "cloud_api").Logger(),
	}
}

// WithBaseURL points the client at a different graph host (tests, proxies)
func (c *CloudAPIClient) WithBaseURL(baseURL string) *CloudAPIClient {
	c.baseURL = baseURL
	return c
}

func (c *CloudAPIClient) SendMessage(ctx context.Context, to, content string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        content,
		},
	}
	if err := c.post(ctx, payload); err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	c.log.Debug().Str("to", to).Msg("message sent")
	return nil
}

// MarkRead flags an incoming message as read
func (c *CloudAPIClient) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if err := c.post(ctx, payload); err != nil {
		return fmt.Errorf("mark %s read: %w", messageID, err)
	}
	return nil
}

func (c *CloudAPIClient) post(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph api status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
