package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-match-backend/internal/domain"
)

func TestMatchesStats_CountError_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	if _, _, err := MatchesStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing matches table")
	}
}

func TestMatchesStats_ZeroRows(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	count, maxAt, err := MatchesStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("MatchesStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestMatchesStats_Success_FilterAndMax(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	seedProfiles(t, db, "u1", "u2", "u3", "u4")

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for u1
	t3 := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)   // other users only

	rows := []domain.Match{
		{ID: "m1", UserAID: "u1", UserBID: "u2", CreatedAt: t1},
		{ID: "m2", UserAID: "u1", UserBID: "u3", CreatedAt: t2},
		{ID: "m3", UserAID: "u2", UserBID: "u4", CreatedAt: t3},
	}
	for i := range rows {
		if err := db.Omit("UserA", "UserB").Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", rows[i].ID, err)
		}
	}

	count, maxAt, err := MatchesStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("MatchesStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max %v, got %v", t2, maxAt)
	}
}

func TestMessagesStats_ZeroAndMax(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	ctx := context.Background()
	convID := mustConversation(t, db, "u1", "u2")

	if n, at, err := MessagesStats(ctx, db, convID); err != nil || n != 0 || at != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", n, at, err)
	}

	t1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	for i, at := range []time.Time{t2, t1} {
		m := &domain.Message{ID: string(rune('a' + i)), ConversationID: convID, SenderID: "u1", Text: "x", CreatedAt: at}
		if err := db.Omit("Conversation").Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n, at, err := MessagesStats(ctx, db, convID)
	if err != nil || n != 2 || at == nil || !at.Equal(t2) {
		t.Fatalf("unexpected stats (%d, %v, %v)", n, at, err)
	}
}

func TestMessagesStats_CountError_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, _, err := MessagesStats(context.Background(), db, "c1"); err == nil {
		t.Fatalf("expected error due to missing messages table")
	}
}
