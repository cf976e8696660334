package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-match-backend/internal/domain"
)

func TestCreateAccount_LowercasesAndRejectsDuplicate(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	ctx := context.Background()

	a, err := CreateAccount(ctx, db, "  Alice@Example.COM ", "hash")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.Email != "alice@example.com" || a.ID == "" {
		t.Fatalf("unexpected account: %+v", a)
	}
	if _, err := CreateAccount(ctx, db, "alice@example.com", "hash2"); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetAccountByEmail(ctx, db, "ALICE@example.com")
	if err != nil || got.ID != a.ID || got.PasswordHash != "hash" {
		t.Fatalf("GetAccountByEmail: %+v err=%v", got, err)
	}
	if _, err := GetAccountByEmail(ctx, db, "bob@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEvents_CreateListGet(t *testing.T) {
	db := newRepoDB(t, migrateAll)
	ctx := context.Background()
	base := time.Date(2025, 9, 1, 19, 0, 0, 0, time.UTC)

	later := &domain.Event{Title: "Wine Tasting", StartsAt: base.Add(48 * time.Hour), MaxParticipants: 20}
	sooner := &domain.Event{Title: "Speed Dating Night", StartsAt: base, MaxParticipants: 30}
	for _, e := range []*domain.Event{later, sooner} {
		if err := CreateEvent(ctx, db, e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		if e.ID == "" {
			t.Fatalf("expected generated id")
		}
	}

	if n, err := CountEvents(ctx, db); err != nil || n != 2 {
		t.Fatalf("CountEvents = %d, %v", n, err)
	}
	page, err := ListEventsPage(ctx, db, 0, 10)
	if err != nil || len(page) != 2 || page[0].Title != "Speed Dating Night" {
		t.Fatalf("unexpected order: %+v err=%v", page, err)
	}
	got, err := GetEvent(ctx, db, later.ID)
	if err != nil || got.Title != "Wine Tasting" {
		t.Fatalf("GetEvent: %+v err=%v", got, err)
	}
	if _, err := GetEvent(ctx, db, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
