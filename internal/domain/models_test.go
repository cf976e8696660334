package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_models_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&Profile{}, &Account{}, &Like{}, &Match{}, &Conversation{}, &Message{}, &Event{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Profile{}).TableName():      "profiles",
		(Like{}).TableName():         "likes",
		(Match{}).TableName():        "matches",
		(Conversation{}).TableName(): "conversations",
		(Message{}).TableName():      "messages",
		(Event{}).TableName():        "events",
		(Account{}).TableName():      "accounts",
		(Idempotency{}).TableName():  "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_IndexesExist(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	checks := []struct {
		model any
		index string
	}{
		{&Like{}, "ux_likes_pair"},
		{&Like{}, "idx_likes_to"},
		{&Match{}, "ux_matches_pair"},
		{&Match{}, "idx_matches_user_b"},
		{&Conversation{}, "ux_conversations_match"},
		{&Message{}, "idx_conv_msgs"},
		{&Account{}, "ux_accounts_email"},
		{&Profile{}, "idx_profiles_active"},
	}
	for _, c := range checks {
		if !m.HasIndex(c.model, c.index) {
			t.Fatalf("expected index %s on %T", c.index, c.model)
		}
	}
	if !m.HasColumn(&Match{}, "user_a_id") || !m.HasColumn(&Match{}, "user_b_id") {
		t.Fatalf("expected user_a_id/user_b_id columns on matches")
	}
	if !m.HasColumn(&Profile{}, "photo_urls") {
		t.Fatalf("expected photo_urls column on profiles")
	}
}

func TestUniquePairs_AndCascades(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	for _, id := range []string{"u1", "u2"} {
		if err := db.Create(&Profile{ID: id, DisplayName: id, Age: 30}).Error; err != nil {
			t.Fatalf("seed profile %s: %v", id, err)
		}
	}

	if err := db.Create(&Like{ID: "l1", FromUserID: "u1", ToUserID: "u2", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert like: %v", err)
	}
	if err := db.Create(&Like{ID: "l2", FromUserID: "u1", ToUserID: "u2", CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate like")
	}

	if err := db.Create(&Match{ID: "m1", UserAID: "u1", UserBID: "u2", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert match: %v", err)
	}
	if err := db.Create(&Match{ID: "m2", UserAID: "u1", UserBID: "u2", CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate match pair")
	}

	if err := db.Create(&Conversation{ID: "c1", MatchID: "m1", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert conversation: %v", err)
	}
	if err := db.Create(&Conversation{ID: "c2", MatchID: "m1", CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on second conversation for match")
	}

	if err := db.Create(&Message{ID: "x1", ConversationID: "c1", SenderID: "u1", Text: "hi", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}

	// Deleting the match cascades to its conversation and messages.
	if err := db.Delete(&Match{}, "id = ?", "m1").Error; err != nil {
		t.Fatalf("delete match: %v", err)
	}
	var n int64
	db.Model(&Conversation{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected conversations cascaded, got %d", n)
	}
	db.Model(&Message{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected messages cascaded, got %d", n)
	}
}

func TestProfile_ListsRoundTrip(t *testing.T) {
	db := newDomainDB(t)
	lat, lng := 40.7128, -74.0060
	p := &Profile{
		ID:          "u1",
		DisplayName: "Alice",
		Age:         25,
		Interests:   []string{"hiking", "photography"},
		PhotoURLs:   []string{"https://cdn.example/a.jpg"},
		Lat:         &lat,
		Lng:         &lng,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got Profile
	if err := db.First(&got, "id = ?", "u1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Interests) != 2 || got.Interests[1] != "photography" {
		t.Fatalf("interests not preserved in order: %v", got.Interests)
	}
	if len(got.PhotoURLs) != 1 || got.Lat == nil || *got.Lat != lat {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestMatch_InvolvesAndOther(t *testing.T) {
	m := Match{UserAID: "a", UserBID: "b"}
	if !m.Involves("a") || !m.Involves("b") || m.Involves("c") || m.Involves("") {
		t.Fatalf("Involves mismatch")
	}
	if m.Other("a") != "b" || m.Other("b") != "a" {
		t.Fatalf("Other mismatch")
	}
}

func TestProfile_Summary(t *testing.T) {
	s := Profile{ID: "u1", DisplayName: "Bob"}.Summary()
	if s.ID != "u1" || s.DisplayName != "Bob" || s.PhotoURLs == nil {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
