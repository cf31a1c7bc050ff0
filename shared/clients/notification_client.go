package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"portal-backend/shared/config"
)

// Template names the mail templates the notification service can render.
type Template string

const (
	TemplateVerifyEmail   Template = "verify_email"
	TemplateResetPassword Template = "reset_password"
	TemplateVerifyID      Template = "verify_id"
)

// Channel groups websocket subscribers.
const ChannelStaff = "staff"

// NotificationClient handles communication with notification service
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNotificationClient creates a client for NOTIFICATION_SERVICE_URL.
func NewNotificationClient() *NotificationClient {
	cfg := config.GetConfig()
	return NewNotificationClientWithURL(cfg.NotificationServiceURL)
}

func NewNotificationClientWithURL(baseURL string) *NotificationClient {
	return &NotificationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendEmailRequest asks the notification service to render and mail a template.
type SendEmailRequest struct {
	Template  Template          `json:"template" binding:"required"`
	Recipient string            `json:"recipient" binding:"required,email"`
	Vars      map[string]string `json:"vars"`
}

// PushMessage is a realtime event delivered over websocket.
type PushMessage struct {
	Type      string         `json:"type"`
	Event     string         `json:"event,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// PushRequest targets one user or every subscriber of a channel.
type PushRequest struct {
	UserID  string       `json:"user_id,omitempty"`
	Channel string       `json:"channel,omitempty"`
	Message *PushMessage `json:"message" binding:"required"`
}

// EmailResponse represents email service response
type EmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

// Send renders template with vars and mails it to recipient.
func (nc *NotificationClient) Send(ctx context.Context, template Template, recipient string, vars map[string]string) error {
	return nc.post(ctx, "/api/notifications/email/send", SendEmailRequest{
		Template:  template,
		Recipient: recipient,
		Vars:      vars,
	})
}

// Push broadcasts an event to every subscriber of channel.
func (nc *NotificationClient) Push(ctx context.Context, channel, event string, data map[string]any) error {
	return nc.post(ctx, "/ws/send", PushRequest{
		Channel: channel,
		Message: &PushMessage{
			Type:      "event",
			Event:     event,
			Data:      data,
			Timestamp: time.Now().UTC(),
		},
	})
}

func (nc *NotificationClient) post(ctx context.Context, endpoint string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s", nc.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification service returned status: %d", resp.StatusCode)
	}

	return nil
}
