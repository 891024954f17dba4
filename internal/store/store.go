// Package store provides the tenant-scoped relational store backing the
// platform. All reads and writes take an explicit tenant ID; cross-tenant
// access is impossible by construction because every query goes through the
// central tenant scope.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// ErrNotFound is returned when an entity does not exist within the caller's
// tenant. A row owned by another tenant is indistinguishable from a missing
// row.
var ErrNotFound = errors.New("not found")

// Store wraps the GORM database handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the database and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; serialize connections to avoid
	// SQLITE_BUSY under concurrent appends.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.Agent{},
		&model.AgentChannel{},
		&model.Conversation{},
		&model.Message{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// scoped returns a query builder filtered to the given tenant. Every
// tenant-owned read and write must start here.
func (s *Store) scoped(ctx context.Context, tenantID string) *gorm.DB {
	return s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
}

// NewID returns a new time-ordered unique identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
