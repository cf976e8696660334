package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-match-backend/internal/domain"
)

func TestCreateMessage_InsertsAndSetsFields(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	ctx := context.Background()
	convID := mustConversation(t, db, "u1", "u2")

	start := time.Now().UTC().Add(-time.Minute)
	m, err := CreateMessage(ctx, db, convID, "u1", "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.ConversationID != convID || m.SenderID != "u1" || m.Text != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", m.CreatedAt)
	}

	got, err := GetMessage(ctx, db, m.ID)
	if err != nil || got.Text != "hello" {
		t.Fatalf("GetMessage: %+v err=%v", got, err)
	}
	if _, err := GetMessage(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateMessage_UnknownConversation_FKError(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	if _, err := CreateMessage(context.Background(), db, "nope", "u1", "hi"); err == nil {
		t.Fatalf("expected foreign key violation")
	}
}

func TestCountMessages_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, err := CountMessages(context.Background(), db, "c1"); err == nil {
		t.Fatalf("expected error due to missing messages table")
	}
}

func TestListMessagesPage_OrderAndPagination(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	ctx := context.Background()
	convID := mustConversation(t, db, "u1", "u2")

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	// Two rows share a timestamp so the id tiebreak is exercised.
	rows := []domain.Message{
		{ID: "m3", ConversationID: convID, SenderID: "u1", Text: "c", CreatedAt: base.Add(time.Minute)},
		{ID: "m1", ConversationID: convID, SenderID: "u2", Text: "a", CreatedAt: base},
		{ID: "m2", ConversationID: convID, SenderID: "u1", Text: "b", CreatedAt: base},
	}
	for i := range rows {
		if err := db.Omit("Conversation").Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", rows[i].ID, err)
		}
	}

	total, err := CountMessages(ctx, db, convID)
	if err != nil || total != 3 {
		t.Fatalf("CountMessages = %d, %v", total, err)
	}

	page1, err := ListMessagesPage(ctx, db, convID, 0, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "m1" || page1[1].ID != "m2" {
		t.Fatalf("unexpected page1: %+v", page1)
	}
	page2, err := ListMessagesPage(ctx, db, convID, 2, 2)
	if err != nil || len(page2) != 1 || page2[0].ID != "m3" {
		t.Fatalf("unexpected page2: %+v err=%v", page2, err)
	}
}
