package store

import (
	"context"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// AppendMessage appends an immutable message to a conversation's log and
// bumps the conversation's updated_at. Messages are created, never updated.
func (s *Store) AppendMessage(ctx context.Context, tenantID, conversationID string, role model.Role, content string, tokensUsed int) (*model.Message, error) {
	msg := &model.Message{
		ID:             NewID(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		TokensUsed:     tokensUsed,
		Metadata:       model.JSONMap{},
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}

	// Touch the conversation so recency ordering tracks activity.
	s.scoped(ctx, tenantID).
		Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", msg.CreatedAt)

	return msg, nil
}

// RecentMessages returns the most recent limit messages of a conversation in
// chronological order. This is the bounded context window: a sliding slice of
// the log, not a summary.
func (s *Store) RecentMessages(ctx context.Context, tenantID, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	var messages []model.Message
	err := s.scoped(ctx, tenantID).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ListMessages returns up to limit messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, tenantID, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var messages []model.Message
	err := s.scoped(ctx, tenantID).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountMessages returns the total number of messages in a conversation.
func (s *Store) CountMessages(ctx context.Context, tenantID, conversationID string) (int64, error) {
	var count int64
	err := s.scoped(ctx, tenantID).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

// TotalTokens returns the sum of tokens_used across a conversation's messages.
func (s *Store) TotalTokens(ctx context.Context, tenantID, conversationID string) (int64, error) {
	var total int64
	err := s.scoped(ctx, tenantID).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(SUM(tokens_used), 0)").
		Scan(&total).Error
	return total, err
}
