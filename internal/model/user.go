package model

import (
	"strings"
	"time"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is an authenticated principal belonging to exactly one tenant. It is
// used only for API authentication and authorization.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TenantID     string    `json:"tenant_id" gorm:"uniqueIndex:idx_users_tenant_email,priority:1;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex:idx_users_tenant_email,priority:2;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         string    `json:"role" gorm:"default:member;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lowercases and trims the email before validation.
func (u *User) NormalizeEmail() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// Validate checks user fields at write time.
func (u *User) Validate() error {
	var errs ValidationErrors
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		errs.add("email", "must be a valid email address")
	}
	if u.Role != RoleAdmin && u.Role != RoleMember {
		errs.add("role", "must be admin or member")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
