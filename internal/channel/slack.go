package channel

import (
	"context"
	"errors"

	"github.com/slack-go/slack"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// SlackSender delivers messages via the Slack Web API.
type SlackSender struct {
	api *slack.Client
}

// NewSlackSender builds a Slack sender from a channel configuration.
func NewSlackSender(config model.JSONMap) (Sender, error) {
	token := config.GetString("bot_token")
	if token == "" {
		return nil, errors.New("slack configuration is missing bot_token")
	}
	return &SlackSender{api: slack.New(token)}, nil
}

// Send posts the message to the Slack channel or DM identified by
// channelUserID.
func (s *SlackSender) Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error {
	_, _, err := s.api.PostMessageContext(ctx, channelUserID, slack.MsgOptionText(content, false))
	return err
}
