package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
)

func newMessageService(t *testing.T) (*MessageService, *domain.Conversation, *fakeNotifier) {
	t.Helper()
	db := newSvcDB(t)
	seedProfile(t, db, "u1", func(p *domain.Profile) { p.DisplayName = "Alice" })
	seedProfile(t, db, "u2", func(p *domain.Profile) { p.DisplayName = "Bob" })
	seedProfile(t, db, "u3")
	conv := matchPair(t, db, "u1", "u2")
	n := &fakeNotifier{}
	svc := &MessageService{
		DB:            db,
		Conversations: NewConversationService(db, repoShim{}),
		MaxRunes:      10,
		Notifier:      n,
	}
	return svc, conv, n
}

func TestNormalizeMessage(t *testing.T) {
	cases := map[string]string{
		"  hi  ":                  "hi",
		"a\r\nb":                  "a\nb",
		"a\rb":                    "a\nb",
		"a\n\n\n\nb":              "a\n\nb",
		"a\r\n\r\n\r\n\r\nb\n\n ": "a\n\nb",
		" \n\t ":                  "",
	}
	for in, want := range cases {
		if got := NormalizeMessage(in); got != want {
			t.Fatalf("NormalizeMessage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMessageSend_Validation(t *testing.T) {
	svc, conv, _ := newMessageService(t)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "", conv.ID, "hi"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", conv.ID, " \r\n "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("want ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", conv.ID, strings.Repeat("é", 11)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("want ErrMessageTooLong, got %v", err)
	}
	// exactly at the limit counts runes, not bytes
	if _, err := svc.Send(ctx, "u1", conv.ID, strings.Repeat("é", 10)); err != nil {
		t.Fatalf("10 runes should pass: %v", err)
	}
	if _, err := svc.Send(ctx, "u3", conv.ID, "hi"); !errors.Is(err, ErrForbiddenConversation) {
		t.Fatalf("want ErrForbiddenConversation, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", "missing", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
}

func TestMessageSend_PersistsPublishesAndEnriches(t *testing.T) {
	svc, conv, n := newMessageService(t)
	ctx := context.Background()

	m, err := svc.Send(ctx, "u2", conv.ID, "  hey\r\n ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.Text != "hey" || m.SenderID != "u2" || m.ConversationID != conv.ID {
		t.Fatalf("unexpected message: %+v", m)
	}
	if m.Sender == nil || m.Sender.DisplayName != "Bob" {
		t.Fatalf("sender summary missing: %+v", m.Sender)
	}
	if len(n.messages) != 1 || n.messages[0].ID != m.ID {
		t.Fatalf("message not published")
	}
	p, _ := repo.GetProfile(ctx, svc.DB, "u2")
	if p.LastActiveAt == nil || p.LastActiveAt.Before(m.CreatedAt.Add(-1)) {
		t.Fatalf("last_active_at not bumped: %v", p.LastActiveAt)
	}
}

func TestMessageSend_PublishFailureIsNotFatal(t *testing.T) {
	svc, conv, n := newMessageService(t)
	n.err = errors.New("redis down")
	if _, err := svc.Send(context.Background(), "u1", conv.ID, "hi"); err != nil {
		t.Fatalf("publish errors must not fail Send: %v", err)
	}
}

func TestMessageListPage_OrderPaginationAndUnknownSender(t *testing.T) {
	svc, conv, _ := newMessageService(t)
	ctx := context.Background()

	for _, txt := range []string{"one", "two", "three"} {
		if _, err := svc.Send(ctx, "u1", conv.ID, txt); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	// Message from a sender whose profile no longer exists.
	if _, err := repo.CreateMessage(ctx, svc.DB, conv.ID, "deleted-user", "ghost"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	items, total, err := svc.ListPage(ctx, "u2", conv.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 4 || len(items) != 2 || items[0].Text != "one" || items[1].Text != "two" {
		t.Fatalf("page 1 unexpected: total=%d items=%+v", total, items)
	}
	if items[0].Sender == nil || items[0].Sender.DisplayName != "Alice" {
		t.Fatalf("sender summary missing: %+v", items[0].Sender)
	}

	items, _, err = svc.ListPage(ctx, "u2", conv.ID, 2, 2)
	if err != nil || len(items) != 2 {
		t.Fatalf("page 2: %v %v", items, err)
	}
	if items[1].Text != "ghost" || items[1].Sender == nil || items[1].Sender.DisplayName != UnknownSenderName {
		t.Fatalf("unknown sender fallback missing: %+v", items[1])
	}
	if items[1].Sender.PhotoURLs == nil {
		t.Fatalf("placeholder photos should be an empty list")
	}
}

func TestMessageListPage_DefaultsAndAccess(t *testing.T) {
	svc, conv, _ := newMessageService(t)
	ctx := context.Background()

	items, total, err := svc.ListPage(ctx, "u1", conv.ID, 0, 0)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty conversation: %v %d %v", items, total, err)
	}
	if _, _, err := svc.ListPage(ctx, "u3", conv.ID, 1, 20); !errors.Is(err, ErrForbiddenConversation) {
		t.Fatalf("want ErrForbiddenConversation, got %v", err)
	}
}

func TestMessageSendIdempotent_ReplaysOriginal(t *testing.T) {
	svc, conv, n := newMessageService(t)
	ctx := context.Background()

	m1, replayed, err := svc.SendIdempotent(ctx, "u1", conv.ID, "hello", "k-1")
	if err != nil || replayed {
		t.Fatalf("first send: replayed=%v err=%v", replayed, err)
	}
	m2, replayed, err := svc.SendIdempotent(ctx, "u1", conv.ID, "hello again", "k-1")
	if err != nil || !replayed {
		t.Fatalf("second send should replay: replayed=%v err=%v", replayed, err)
	}
	if m2.ID != m1.ID || m2.Text != "hello" || m2.Sender == nil {
		t.Fatalf("replay returned %+v, want %+v", m2, m1)
	}
	if total, _ := repo.CountMessages(ctx, svc.DB, conv.ID); total != 1 {
		t.Fatalf("messages = %d, want 1", total)
	}
	if len(n.messages) != 1 {
		t.Fatalf("replay must not publish again")
	}

	// Same key from the other participant is a different scope owner.
	if _, replayed, err := svc.SendIdempotent(ctx, "u2", conv.ID, "hi", "k-1"); err != nil || replayed {
		t.Fatalf("other user must not replay: replayed=%v err=%v", replayed, err)
	}
	// Empty key behaves like Send.
	if _, replayed, err := svc.SendIdempotent(ctx, "u1", conv.ID, "x", "  "); err != nil || replayed {
		t.Fatalf("blank key: replayed=%v err=%v", replayed, err)
	}
	// Outsiders cannot probe keys.
	if _, _, err := svc.SendIdempotent(ctx, "u3", conv.ID, "x", "k-1"); !errors.Is(err, ErrForbiddenConversation) {
		t.Fatalf("want ErrForbiddenConversation, got %v", err)
	}
}

func TestMessagesVersion(t *testing.T) {
	svc, conv, _ := newMessageService(t)
	ctx := context.Background()

	n0, _, err := svc.MessagesVersion(ctx, "u1", conv.ID)
	if err != nil || n0 != 0 {
		t.Fatalf("empty version: %d %v", n0, err)
	}
	if _, err := svc.Send(ctx, "u1", conv.ID, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	n1, ts1, err := svc.MessagesVersion(ctx, "u1", conv.ID)
	if err != nil || n1 != 1 || ts1 == 0 {
		t.Fatalf("version after send: %d %d %v", n1, ts1, err)
	}
	if _, _, err := svc.MessagesVersion(ctx, "u3", conv.ID); !errors.Is(err, ErrForbiddenConversation) {
		t.Fatalf("want ErrForbiddenConversation, got %v", err)
	}
}
