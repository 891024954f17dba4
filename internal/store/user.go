package store

import (
	"context"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// CreateUser inserts a new user within the given tenant.
func (s *Store) CreateUser(ctx context.Context, tenantID string, user *model.User) error {
	user.NormalizeEmail()
	if err := user.Validate(); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = NewID()
	}
	user.TenantID = tenantID
	return s.db.WithContext(ctx).Create(user).Error
}

// GetUser fetches a user by ID within the given tenant.
func (s *Store) GetUser(ctx context.Context, tenantID, id string) (*model.User, error) {
	var user model.User
	if err := s.scoped(ctx, tenantID).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user by email within the given tenant.
func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*model.User, error) {
	var user model.User
	if err := s.scoped(ctx, tenantID).First(&user, "email = ?", email).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}
