// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
)

// NewDB opens a private in-memory sqlite database with the schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

// NewSeededDB is NewDB plus the fixed role rows.
func NewSeededDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := NewDB(t)
	for _, name := range models.AllRoles {
		if err := db.Create(&models.Role{Name: name}).Error; err != nil {
			t.Fatalf("failed to seed role %s: %v", name, err)
		}
	}
	return db
}
