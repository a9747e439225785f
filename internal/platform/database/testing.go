package database

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

// NewTestDB returns a migrated in-memory sqlite database that is closed when
// the test finishes.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := New(context.Background(), "sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
