package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// GetConversation fetches a conversation by ID within the given tenant.
func (s *Store) GetConversation(ctx context.Context, tenantID, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := s.scoped(ctx, tenantID).First(&conv, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &conv, nil
}

// ListConversationsByAgent returns an agent's conversations, most recently
// updated first.
func (s *Store) ListConversationsByAgent(ctx context.Context, tenantID, agentID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var convs []model.Conversation
	err := s.scoped(ctx, tenantID).
		Where("agent_id = ?", agentID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// UpdateConversation persists status/metadata changes.
func (s *Store) UpdateConversation(ctx context.Context, tenantID string, conv *model.Conversation) error {
	if err := conv.Validate(); err != nil {
		return err
	}
	result := s.scoped(ctx, tenantID).
		Where("id = ?", conv.ID).
		Select("status", "metadata", "updated_at").
		Updates(conv)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrCreateActiveConversation returns the active conversation for
// (agent, channel_type, channel_user_id), creating one atomically when none
// exists. The insert targets the partial unique index on active
// conversations, so two concurrent calls for the same identity produce
// exactly one row; the loser of the race reads the winner's row back.
func (s *Store) FindOrCreateActiveConversation(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID string, metadata model.JSONMap) (*model.Conversation, bool, error) {
	if metadata == nil {
		metadata = model.JSONMap{}
	}

	conv := &model.Conversation{
		ID:            NewID(),
		TenantID:      tenantID,
		AgentID:       agentID,
		ChannelType:   channelType,
		ChannelUserID: channelUserID,
		Status:        model.StatusActive,
		Metadata:      metadata,
	}
	if err := conv.Validate(); err != nil {
		return nil, false, err
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "agent_id"}, {Name: "channel_type"}, {Name: "channel_user_id"},
		},
		// The conflict target must render as the literal predicate of the
		// partial index; SQLite rejects a bound parameter here.
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "status = 'active'"},
		}},
		DoNothing: true,
	}).Create(conv)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return conv, true, nil
	}

	var existing model.Conversation
	err := s.scoped(ctx, tenantID).
		First(&existing, "agent_id = ? AND channel_type = ? AND channel_user_id = ? AND status = ?",
			agentID, channelType, channelUserID, model.StatusActive).Error
	if err != nil {
		return nil, false, mapNotFound(err)
	}
	return &existing, false, nil
}
