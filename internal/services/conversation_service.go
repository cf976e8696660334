// Package services – ConversationService
//
// This file implements ConversationService, which lists the conversations a
// user takes part in and authorizes access to a single conversation. A user
// is a participant when they are one of the two sides of the conversation's
// match; membership is always re-checked server-side.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// ConversationRepo defines the repository contract required by
// ConversationService.
type ConversationRepo interface {
	// GetConversationWithMatch loads a conversation and its match.
	GetConversationWithMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// ListConversationsFor returns the user's conversations, newest first,
	// with participant summaries preloaded.
	ListConversationsFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error)
}

// ConversationService provides conversation listing and membership checks.
type ConversationService struct {
	DB   *gorm.DB
	Repo ConversationRepo
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r}
}

// List returns every conversation actorID takes part in, most recent first.
//
// The query already filters on the actor; the result is filtered again in
// memory so a join regression can never leak another pair's conversation.
func (s *ConversationService) List(ctx context.Context, actorID string) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", actorID)),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	items, err := s.Repo.ListConversationsFor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(items))
	for _, c := range items {
		if c.Match != nil && c.Match.Involves(actorID) {
			out = append(out, c)
		}
	}
	span.SetAttributes(attribute.Int("conversations.count", len(out)))
	return out, nil
}

// Authorize loads conversationID and verifies that actorID participates in
// it. It returns ErrConversationNotFound or ErrForbiddenConversation.
func (s *ConversationService) Authorize(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Authorize",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("conversation.id", conversationID),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	conv, err := s.Repo.GetConversationWithMatch(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conv.Match == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.Match.Involves(actorID) {
		return nil, ErrForbiddenConversation
	}
	return conv, nil
}

// ListVersion returns the conversation count and newest created_at for
// actorID, used to build weak ETags.
func (s *ConversationService) ListVersion(ctx context.Context, actorID string) (int64, int64, error) {
	n, latest, err := repo.ConversationsStats(ctx, s.DB, actorID)
	if err != nil {
		return 0, 0, err
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return n, ts, nil
}
