// Package services – MessageService
//
// This file implements MessageService, which owns the lifecycle of chat
// messages inside a match's conversation: paginated reads enriched with
// sender summaries, and sends that normalize text, enforce the length limit,
// persist the message and fan it out to realtime subscribers.
//
// Every operation re-checks conversation membership through
// ConversationService.Authorize.
package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/observability"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// UnknownSenderName is shown for messages whose sender profile is gone.
const UnknownSenderName = "Unknown"

// DefaultIdempotencyTTL is how long a send can be replayed by key.
const DefaultIdempotencyTTL = 24 * time.Hour

// MessagePublisher is told about every persisted message.
// *realtime.Notifier satisfies it.
type MessagePublisher interface {
	MessageCreated(ctx context.Context, m *domain.Message) error
}

// MessageService coordinates message persistence and delivery.
type MessageService struct {
	DB            *gorm.DB
	Conversations *ConversationService

	// MaxRunes caps a normalized message; <= 0 disables the check.
	MaxRunes int
	// IdempotencyTTL bounds replays of SendIdempotent; 0 uses the default.
	IdempotencyTTL time.Duration
	// Notifier publishes realtime message events. Optional.
	Notifier MessagePublisher
}

// ListPage returns one page of a conversation's messages, oldest first, and
// the total count. Each message carries a sender summary.
func (s *MessageService) ListPage(ctx context.Context, actorID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", actorID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := s.Conversations.Authorize(ctx, actorID, conversationID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachSenders(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Send normalizes text, enforces the length limit and appends it to the
// conversation as actorID.
func (s *MessageService) Send(ctx context.Context, actorID, conversationID, text string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", actorID),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	text, err := s.validate(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.Conversations.Authorize(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	return s.persist(ctx, actorID, conversationID, text)
}

// SendIdempotent behaves like Send, but when key was already used by actorID
// on this conversation it returns the originally created message and
// replayed=true instead of inserting again. An empty key disables replay.
func (s *MessageService) SendIdempotent(ctx context.Context, actorID, conversationID, text, key string) (*domain.Message, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		m, err := s.Send(ctx, actorID, conversationID, text)
		return m, false, err
	}

	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "SendIdempotent",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", actorID),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, false, ErrNotAuthenticated
	}
	if _, err := s.Conversations.Authorize(ctx, actorID, conversationID); err != nil {
		return nil, false, err
	}

	if m, ok := s.replay(ctx, actorID, conversationID, key); ok {
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		return m, true, nil
	}

	text, err := s.validate(text)
	if err != nil {
		return nil, false, err
	}
	m, err := s.persist(ctx, actorID, conversationID, text)
	if err != nil {
		return nil, false, err
	}

	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, actorID, conversationID, key, m.ID, http.StatusCreated, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("idempotency record not stored")
	}
	return m, false, nil
}

// MessagesVersion returns the message count and newest created_at of a
// conversation, used to build weak ETags. Membership is checked first.
func (s *MessageService) MessagesVersion(ctx context.Context, actorID, conversationID string) (int64, int64, error) {
	if _, err := s.Conversations.Authorize(ctx, actorID, conversationID); err != nil {
		return 0, 0, err
	}
	n, latest, err := repo.MessagesStats(ctx, s.DB, conversationID)
	if err != nil {
		return 0, 0, err
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return n, ts, nil
}

func (s *MessageService) validate(text string) (string, error) {
	text = NormalizeMessage(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if s.MaxRunes > 0 && utf8.RuneCountInString(text) > s.MaxRunes {
		return "", ErrMessageTooLong
	}
	return text, nil
}

func (s *MessageService) persist(ctx context.Context, actorID, conversationID, text string) (*domain.Message, error) {
	m, err := repo.CreateMessage(ctx, s.DB, conversationID, actorID, text)
	if err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()

	if err := repo.TouchLastActive(ctx, s.DB, actorID, m.CreatedAt); err != nil {
		log.Debug().Err(err).Str("user_id", actorID).Msg("last_active_at not updated")
	}
	one := []domain.Message{*m}
	if err := s.attachSenders(ctx, one); err == nil {
		m.Sender = one[0].Sender
	}

	if s.Notifier != nil {
		if err := s.Notifier.MessageCreated(ctx, m); err != nil {
			log.Warn().Err(err).Str("message_id", m.ID).Msg("message publish failed")
		}
	}
	return m, nil
}

func (s *MessageService) replay(ctx context.Context, actorID, conversationID, key string) (*domain.Message, bool) {
	rec, err := repo.GetIdempotency(ctx, s.DB, actorID, conversationID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return nil, false
	}
	m, err := repo.GetMessage(ctx, s.DB, rec.ResourceID)
	if err != nil || m.ConversationID != conversationID {
		return nil, false
	}
	one := []domain.Message{*m}
	if err := s.attachSenders(ctx, one); err == nil {
		m.Sender = one[0].Sender
	}
	return m, true
}

// attachSenders resolves sender summaries for items with one batched lookup.
func (s *MessageService) attachSenders(ctx context.Context, items []domain.Message) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, m := range items {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	profiles, err := repo.GetProfilesByIDs(ctx, s.DB, ids, true)
	if err != nil {
		return err
	}
	for i := range items {
		var sum domain.ProfileSummary
		if p, ok := profiles[items[i].SenderID]; ok {
			sum = p.Summary()
		} else {
			sum = domain.ProfileSummary{ID: items[i].SenderID, DisplayName: UnknownSenderName, PhotoURLs: []string{}}
		}
		items[i].Sender = &sum
	}
	return nil
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// NormalizeMessage converts CRLF/CR to LF, collapses runs of three or more
// line breaks to one blank line and trims surrounding whitespace.
func NormalizeMessage(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
