package model

import (
	"regexp"
	"strings"
	"time"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Tenant is the isolation boundary. Every other entity except User is scoped
// to exactly one tenant via its tenant_id column.
type Tenant struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Subdomain string    `json:"subdomain" gorm:"uniqueIndex;not null"`
	Settings  JSONMap   `json:"settings" gorm:"type:text"`
	Active    bool      `json:"active" gorm:"default:true;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeSubdomain lowercases and trims the subdomain before validation.
func (t *Tenant) NormalizeSubdomain() {
	t.Subdomain = strings.ToLower(strings.TrimSpace(t.Subdomain))
}

// Validate checks tenant fields at write time.
func (t *Tenant) Validate() error {
	var errs ValidationErrors
	if l := len(t.Name); l < 2 || l > 100 {
		errs.add("name", "must be between 2 and 100 characters")
	}
	if t.Subdomain == "" {
		errs.add("subdomain", "is required")
	} else if !subdomainPattern.MatchString(t.Subdomain) {
		errs.add("subdomain", "only allows lowercase letters, numbers, and hyphens")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
