package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// CreateTenant inserts a new tenant. Tenants are not themselves
// tenant-scoped; they define the scope.
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	tenant.NormalizeSubdomain()
	if err := tenant.Validate(); err != nil {
		return err
	}
	if tenant.ID == "" {
		tenant.ID = NewID()
	}
	if tenant.Settings == nil {
		tenant.Settings = model.JSONMap{}
	}
	tenant.Active = true
	return s.db.WithContext(ctx).Create(tenant).Error
}

// CreateTenantWithAdmin creates a tenant and its first admin user in one
// transaction, so a failed user insert never leaves an empty tenant behind.
func (s *Store) CreateTenantWithAdmin(ctx context.Context, tenant *model.Tenant, admin *model.User) error {
	tenant.NormalizeSubdomain()
	if err := tenant.Validate(); err != nil {
		return err
	}
	admin.NormalizeEmail()
	admin.Role = model.RoleAdmin
	if err := admin.Validate(); err != nil {
		return err
	}

	if tenant.ID == "" {
		tenant.ID = NewID()
	}
	if tenant.Settings == nil {
		tenant.Settings = model.JSONMap{}
	}
	tenant.Active = true
	if admin.ID == "" {
		admin.ID = NewID()
	}
	admin.TenantID = tenant.ID

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		return tx.Create(admin).Error
	})
}

// GetTenant fetches a tenant by ID.
func (s *Store) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &tenant, nil
}

// GetTenantBySubdomain fetches an active tenant by its unique subdomain.
func (s *Store) GetTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := s.db.WithContext(ctx).
		First(&tenant, "subdomain = ? AND active = ?", subdomain, true).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &tenant, nil
}
