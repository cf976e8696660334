package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// newRepoDB opens a fresh in-memory database. With no models the schema is
// left empty so "missing table" error paths can be exercised; pass
// migrateAll to run the full AutoMigrate.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	for _, m := range migrate {
		if m == migrateAll {
			if err := AutoMigrate(db); err != nil {
				t.Fatalf("automigrate: %v", err)
			}
			continue
		}
		if err := db.AutoMigrate(m); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

type migrateAllMarker struct{}

var migrateAll = migrateAllMarker{}

func seedProfiles(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	now := time.Now().UTC()
	for _, id := range ids {
		p := &domain.Profile{ID: id, DisplayName: "name-" + id, Age: 30, LastActiveAt: &now}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed profile %s: %v", id, err)
		}
	}
}

// mustConversation seeds both profiles, their canonical match and its
// conversation, returning the conversation id.
func mustConversation(t *testing.T, db *gorm.DB, x, y string) string {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{x, y} {
		if ok, _ := ProfileExists(ctx, db, id); !ok {
			seedProfiles(t, db, id)
		}
	}
	a, b := CanonicalPair(x, y)
	if _, err := InsertMatchIgnoreConflict(ctx, db, a, b); err != nil {
		t.Fatalf("insert match: %v", err)
	}
	m, err := FindMatchBetween(ctx, db, a, b)
	if err != nil {
		t.Fatalf("find match: %v", err)
	}
	if _, err := InsertConversationIgnoreConflict(ctx, db, m.ID); err != nil {
		t.Fatalf("insert conversation: %v", err)
	}
	c, err := GetConversationByMatch(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	return c.ID
}
