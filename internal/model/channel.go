package model

import (
	"fmt"
	"time"
)

// ChannelType is a delivery surface for messages.
type ChannelType string

// Supported channel types.
const (
	ChannelSlack    ChannelType = "slack"
	ChannelTelegram ChannelType = "telegram"
	ChannelSMS      ChannelType = "sms"
	ChannelWeb      ChannelType = "web"
)

// ChannelTypes lists all supported channel types.
var ChannelTypes = []ChannelType{ChannelSlack, ChannelTelegram, ChannelSMS, ChannelWeb}

// channelRequiredKeys maps each channel type to the configuration keys it
// requires. Validation happens at write time, not when a sender is built.
var channelRequiredKeys = map[ChannelType][]string{
	ChannelSlack:    {"bot_token", "signing_secret"},
	ChannelTelegram: {"bot_token"},
	ChannelSMS:      {"twilio_account_sid", "twilio_auth_token"},
	ChannelWeb:      {"webhook_url"},
}

// ValidChannelType reports whether t is a supported channel type.
func ValidChannelType(t ChannelType) bool {
	_, ok := channelRequiredKeys[t]
	return ok
}

// AgentChannel binds an agent to a channel type with channel-specific
// credentials. Unique per (agent, channel_type).
type AgentChannel struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	TenantID      string      `json:"tenant_id" gorm:"index;not null"`
	AgentID       string      `json:"agent_id" gorm:"uniqueIndex:idx_agent_channel,priority:1;not null"`
	ChannelType   ChannelType `json:"channel_type" gorm:"uniqueIndex:idx_agent_channel,priority:2;not null"`
	Configuration JSONMap     `json:"configuration" gorm:"type:text"`
	Active        bool        `json:"active" gorm:"default:true;not null"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Validate checks the channel binding, including the per-type required keys.
func (c *AgentChannel) Validate() error {
	var errs ValidationErrors

	required, ok := channelRequiredKeys[c.ChannelType]
	if !ok {
		errs.add("channel_type", "must be one of slack, telegram, sms, web")
		return errs
	}

	for _, key := range required {
		if c.Configuration.GetString(key) == "" {
			errs.add("configuration", fmt.Sprintf("must include %s for %s", key, c.ChannelType))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CreateAgentChannelRequest is the request to bind an agent to a channel.
type CreateAgentChannelRequest struct {
	ChannelType   ChannelType `json:"channel_type"`
	Configuration JSONMap     `json:"configuration"`
}

// ListAgentChannelsResponse is the response for listing agent channels.
type ListAgentChannelsResponse struct {
	Channels []AgentChannel `json:"channels"`
}

// InboundChannelMessageRequest is an end-user message arriving from a channel
// integration, to be processed asynchronously.
type InboundChannelMessageRequest struct {
	ChannelUserID string  `json:"channel_user_id"`
	Content       string  `json:"content"`
	Metadata      JSONMap `json:"metadata,omitempty"`
}

// InboundChannelMessageResponse acknowledges a queued channel message.
type InboundChannelMessageResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}
