package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// WebSender delivers messages by posting to the tenant's configured webhook.
type WebSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebSender builds a web sender from a channel configuration.
func NewWebSender(config model.JSONMap) (Sender, error) {
	webhookURL := config.GetString("webhook_url")
	if webhookURL == "" {
		return nil, errors.New("web configuration is missing webhook_url")
	}
	return &WebSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type webhookPayload struct {
	ChannelUserID string        `json:"channel_user_id"`
	Content       string        `json:"content"`
	Metadata      model.JSONMap `json:"metadata,omitempty"`
}

// Send posts the message to the configured webhook URL.
func (s *WebSender) Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error {
	body, err := json.Marshal(webhookPayload{
		ChannelUserID: channelUserID,
		Content:       content,
		Metadata:      metadata,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
