package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// CreateAgent inserts a new agent within the given tenant.
func (s *Store) CreateAgent(ctx context.Context, tenantID string, agent *model.Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	if agent.ID == "" {
		agent.ID = NewID()
	}
	agent.TenantID = tenantID
	if agent.Configuration == nil {
		agent.Configuration = model.JSONMap{}
	}
	return s.db.WithContext(ctx).Create(agent).Error
}

// GetAgent fetches an agent by ID within the given tenant.
func (s *Store) GetAgent(ctx context.Context, tenantID, id string) (*model.Agent, error) {
	var agent model.Agent
	if err := s.scoped(ctx, tenantID).First(&agent, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &agent, nil
}

// ListAgents returns all agents for the tenant, newest first.
func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]model.Agent, error) {
	var agents []model.Agent
	err := s.scoped(ctx, tenantID).
		Order("created_at DESC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// UpdateAgent persists changes to an existing agent after re-validation.
func (s *Store) UpdateAgent(ctx context.Context, tenantID string, agent *model.Agent) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	result := s.scoped(ctx, tenantID).
		Where("id = ?", agent.ID).
		Select("name", "description", "provider", "model", "system_prompt",
			"temperature", "max_tokens", "configuration", "active", "updated_at").
		Updates(agent)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAgent removes an agent and everything it owns inside one explicit
// transaction: messages, then conversations, then channel bindings, then the
// agent row itself.
func (s *Store) DeleteAgent(ctx context.Context, tenantID, agentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var convIDs []string
		err := tx.Model(&model.Conversation{}).
			Where("tenant_id = ? AND agent_id = ?", tenantID, agentID).
			Pluck("id", &convIDs).Error
		if err != nil {
			return err
		}

		if len(convIDs) > 0 {
			err = tx.Where("tenant_id = ? AND conversation_id IN ?", tenantID, convIDs).
				Delete(&model.Message{}).Error
			if err != nil {
				return err
			}
		}

		err = tx.Where("tenant_id = ? AND agent_id = ?", tenantID, agentID).
			Delete(&model.Conversation{}).Error
		if err != nil {
			return err
		}

		err = tx.Where("tenant_id = ? AND agent_id = ?", tenantID, agentID).
			Delete(&model.AgentChannel{}).Error
		if err != nil {
			return err
		}

		result := tx.Where("tenant_id = ? AND id = ?", tenantID, agentID).
			Delete(&model.Agent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountAgentConversations returns the number of conversations owned by an agent.
func (s *Store) CountAgentConversations(ctx context.Context, tenantID, agentID string) (int64, error) {
	var count int64
	err := s.scoped(ctx, tenantID).
		Model(&model.Conversation{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error
	return count, err
}
