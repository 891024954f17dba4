// Package channel resolves inbound messages to conversations and routes
// orchestrator results back to the originating channel.
package channel

import (
	"context"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// Sender delivers an outbound message over one channel's own API.
type Sender interface {
	Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error
}

// SenderFactory builds a sender from an agent channel's configuration. The
// configuration has already passed write-time validation for its channel
// type.
type SenderFactory func(config model.JSONMap) (Sender, error)

// DefaultSenderFactories returns the production sender for each channel type.
func DefaultSenderFactories() map[model.ChannelType]SenderFactory {
	return map[model.ChannelType]SenderFactory{
		model.ChannelSlack:    NewSlackSender,
		model.ChannelTelegram: NewTelegramSender,
		model.ChannelSMS:      NewSMSSender,
		model.ChannelWeb:      NewWebSender,
	}
}
