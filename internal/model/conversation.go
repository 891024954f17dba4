package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

// Conversation statuses.
const (
	StatusActive   ConversationStatus = "active"
	StatusPaused   ConversationStatus = "paused"
	StatusArchived ConversationStatus = "archived"
)

// ValidConversationStatus reports whether s is a known status.
func ValidConversationStatus(s ConversationStatus) bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived:
		return true
	}
	return false
}

// Conversation is one logical thread between an external end-user and an
// agent over a specific channel. At most one active conversation may exist
// per (agent, channel_type, channel_user_id); the partial unique index
// enforces this at the store layer.
type Conversation struct {
	ID            string             `json:"id" gorm:"primaryKey"`
	TenantID      string             `json:"tenant_id" gorm:"index;not null"`
	AgentID       string             `json:"agent_id" gorm:"index:idx_active_conversation,unique,where:status = 'active',priority:1;not null"`
	ChannelType   ChannelType        `json:"channel_type" gorm:"index:idx_active_conversation,unique,where:status = 'active',priority:2;not null"`
	ChannelUserID string             `json:"channel_user_id" gorm:"index:idx_active_conversation,unique,where:status = 'active',priority:3;not null"`
	Status        ConversationStatus `json:"status" gorm:"default:active;not null"`
	Metadata      JSONMap            `json:"metadata" gorm:"type:text"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Validate checks conversation fields at write time.
func (c *Conversation) Validate() error {
	var errs ValidationErrors
	if !ValidChannelType(c.ChannelType) {
		errs.add("channel_type", "must be one of slack, telegram, sms, web")
	}
	if c.ChannelUserID == "" {
		errs.add("channel_user_id", "is required")
	}
	if !ValidConversationStatus(c.Status) {
		errs.add("status", "must be one of active, paused, archived")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CreateConversationRequest is the request to explicitly open a conversation.
type CreateConversationRequest struct {
	ChannelType   ChannelType `json:"channel_type"`
	ChannelUserID string      `json:"channel_user_id"`
	Metadata      JSONMap     `json:"metadata,omitempty"`
}

// UpdateConversationRequest is the request to update conversation state.
type UpdateConversationRequest struct {
	Status   ConversationStatus `json:"status,omitempty"`
	Metadata JSONMap            `json:"metadata,omitempty"`
}

// ConversationResponse wraps a conversation with derived counts.
type ConversationResponse struct {
	Conversation
	AgentName     string `json:"agent_name,omitempty"`
	MessagesCount int64  `json:"messages_count"`
	TotalTokens   int64  `json:"total_tokens"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int64                  `json:"total"`
}
