// Package services – MatchService
//
// This file implements the mutual-like matching protocol. A Like is a
// directed edge; when the reciprocal edge exists the pair is resolved into a
// single canonical Match (user_a_id < user_b_id) and exactly one
// Conversation. Every entry point (LikeUser, CreateMatch, the seed tool)
// goes through ResolveMatch, which runs in one transaction and relies on
// ON CONFLICT DO NOTHING plus a re-read so concurrent attempts converge on
// the same rows.
//
// Observability: public methods are OpenTelemetry-instrumented and like
// outcomes are counted on likes_total.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/cache"
	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/observability"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// AdminChecker reports whether a user may use admin-only operations.
// config.AuthConfig satisfies it.
type AdminChecker interface {
	IsAdmin(userID string) bool
}

// MatchNotifier is told about matches right after they are created.
// *realtime.Notifier satisfies it.
type MatchNotifier interface {
	MatchCreated(ctx context.Context, m *domain.Match, conv *domain.Conversation) error
}

// LikeResult describes the outcome of LikeUser.
type LikeResult struct {
	Like         *domain.Like         `json:"like,omitempty"`
	Matched      bool                 `json:"matched"`
	AlreadyLiked bool                 `json:"already_liked,omitempty"`
	Match        *domain.Match        `json:"match,omitempty"`
	Conversation *domain.Conversation `json:"conversation,omitempty"`
	// MatchCreated is true only for the call that wrote the match row.
	MatchCreated bool `json:"match_created,omitempty"`
}

// MatchResult describes the outcome of CreateMatch.
type MatchResult struct {
	Match        *domain.Match        `json:"match"`
	Conversation *domain.Conversation `json:"conversation"`
	Created      bool                 `json:"created"`
}

// MatchService owns likes and matches.
type MatchService struct {
	DB *gorm.DB

	// Admins gates CreateMatch. Nil means nobody is an admin.
	Admins AdminChecker
	// Likes caches per-user received-like counts. Optional.
	Likes cache.LikeCounter
	// Notifier publishes match events. Optional.
	Notifier MatchNotifier
}

// NewMatchService returns a MatchService with no cache and no notifier.
func NewMatchService(db *gorm.DB, admins AdminChecker) *MatchService {
	return &MatchService{DB: db, Admins: admins, Likes: cache.Nop{}}
}

// LikeUser records that actorID likes toUserID and, when the like is
// reciprocated, resolves the pair into a match.
//
// A repeated like writes nothing (AlreadyLiked, nil error) and reports the
// current state: the stored Like and, for a reciprocal pair, its Match. The
// like row commits on its own: if match resolution fails afterwards the
// returned result still carries the persisted Like alongside the error.
func (s *MatchService) LikeUser(ctx context.Context, actorID, toUserID string) (*LikeResult, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "LikeUser",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("target.id", toUserID),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	if toUserID == "" {
		return nil, ErrInvalidTarget
	}
	if toUserID == actorID {
		return nil, ErrSelfLike
	}
	if err := s.requireProfiles(ctx, actorID, toUserID); err != nil {
		return nil, err
	}

	like, err := repo.CreateLike(ctx, s.DB, actorID, toUserID)
	already := errors.Is(err, repo.ErrDuplicate)
	switch {
	case already:
		observability.LikesTotal.WithLabelValues(observability.LikeOutcomeDuplicate).Inc()
		span.SetAttributes(attribute.Bool("like.duplicate", true))
		if like, err = repo.GetLike(ctx, s.DB, actorID, toUserID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("load existing like: %w", err)
		}
	case err != nil:
		observability.LikesTotal.WithLabelValues(observability.LikeOutcomeFailed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "create like")
		return nil, err
	default:
		s.bumpLikeCount(ctx, toUserID)
	}

	// A repeated like still resolves a reciprocal pair, so an earlier
	// resolution failure heals on retry instead of leaving the pair unmatched.
	reciprocal, err := repo.LikeExists(ctx, s.DB, toUserID, actorID)
	if err != nil {
		countLikeOutcome(already, observability.LikeOutcomeFailed)
		span.RecordError(err)
		return &LikeResult{Like: like, AlreadyLiked: already}, fmt.Errorf("check reciprocal like: %w", err)
	}
	if !reciprocal {
		countLikeOutcome(already, observability.LikeOutcomeLiked)
		return &LikeResult{Like: like, AlreadyLiked: already}, nil
	}

	m, conv, created, err := ResolveMatch(ctx, s.DB, actorID, toUserID)
	if err != nil {
		countLikeOutcome(already, observability.LikeOutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve match")
		return &LikeResult{Like: like, AlreadyLiked: already}, fmt.Errorf("resolve match: %w", err)
	}
	countLikeOutcome(already, observability.LikeOutcomeMatched)
	span.SetAttributes(attribute.String("match.id", m.ID), attribute.Bool("match.created", created))
	if created {
		s.announce(ctx, m, conv)
	}

	return &LikeResult{
		Like:         like,
		Matched:      true,
		AlreadyLiked: already,
		Match:        m,
		Conversation: conv,
		MatchCreated: created,
	}, nil
}

// countLikeOutcome records outcome on likes_total unless the attempt was
// already counted as a duplicate.
func countLikeOutcome(duplicate bool, outcome string) {
	if duplicate {
		return
	}
	observability.LikesTotal.WithLabelValues(outcome).Inc()
}

// CreateMatch pairs two users directly, without the reciprocal-like check.
// It is restricted to admins and converges on the same canonical row
// regardless of argument order.
func (s *MatchService) CreateMatch(ctx context.Context, actorID, userAID, userBID string) (*MatchResult, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "CreateMatch",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("pair.x", userAID),
			attribute.String("pair.y", userBID),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	if s.Admins == nil || !s.Admins.IsAdmin(actorID) {
		return nil, ErrForbidden
	}
	if userAID == "" || userBID == "" {
		return nil, ErrInvalidTarget
	}
	if userAID == userBID {
		return nil, ErrSelfLike
	}
	if err := s.requireProfiles(ctx, userAID, userBID); err != nil {
		return nil, err
	}

	m, conv, created, err := ResolveMatch(ctx, s.DB, userAID, userBID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve match")
		return nil, err
	}
	if created {
		s.announce(ctx, m, conv)
	}
	return &MatchResult{Match: m, Conversation: conv, Created: created}, nil
}

// GetMatches returns every match actorID takes part in, ordered
// (created_at, id). The counterpart side carries the full profile (nil when
// the profile is gone); the caller's own side is a placeholder holding only
// the id.
func (s *MatchService) GetMatches(ctx context.Context, actorID string) ([]domain.Match, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "GetMatches",
		trace.WithAttributes(attribute.String("user.id", actorID)),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}

	ms, err := repo.ListMatchesFor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return []domain.Match{}, nil
	}

	others := make([]string, 0, len(ms))
	seen := make(map[string]struct{}, len(ms))
	for _, m := range ms {
		o := m.Other(actorID)
		if _, ok := seen[o]; !ok {
			seen[o] = struct{}{}
			others = append(others, o)
		}
	}
	profiles, err := repo.GetProfilesByIDs(ctx, s.DB, others, false)
	if err != nil {
		return nil, err
	}

	for i := range ms {
		self := &domain.Profile{ID: actorID}
		var other *domain.Profile
		if p, ok := profiles[ms[i].Other(actorID)]; ok {
			p := p
			other = &p
		}
		if ms[i].UserAID == actorID {
			ms[i].UserA, ms[i].UserB = self, other
		} else {
			ms[i].UserA, ms[i].UserB = other, self
		}
	}
	span.SetAttributes(attribute.Int("matches.count", len(ms)))
	return ms, nil
}

// MatchesVersion returns the match count and newest created_at for actorID,
// used to build weak ETags.
func (s *MatchService) MatchesVersion(ctx context.Context, actorID string) (int64, int64, error) {
	n, latest, err := repo.MatchesStats(ctx, s.DB, actorID)
	if err != nil {
		return 0, 0, err
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return n, ts, nil
}

// ResolveMatch is the single routine that turns a reciprocal pair into a
// Match and its Conversation. It canonicalizes the pair, reuses a match found
// in either ordering, and otherwise inserts with ON CONFLICT DO NOTHING and
// re-reads, so concurrent callers converge on one row. The bool reports
// whether this call wrote the match row.
func ResolveMatch(ctx context.Context, db *gorm.DB, x, y string) (*domain.Match, *domain.Conversation, bool, error) {
	if x == "" || y == "" {
		return nil, nil, false, ErrInvalidTarget
	}
	if x == y {
		return nil, nil, false, ErrSelfLike
	}

	var (
		m       *domain.Match
		conv    *domain.Conversation
		created bool
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		m, conv, created, err = resolveMatch(ctx, tx, x, y)
		return err
	})
	if err != nil {
		return nil, nil, false, err
	}
	if created {
		observability.MatchesCreated.Inc()
	}
	return m, conv, created, nil
}

func resolveMatch(ctx context.Context, tx *gorm.DB, x, y string) (*domain.Match, *domain.Conversation, bool, error) {
	a, b := repo.CanonicalPair(x, y)

	created := false
	m, err := repo.FindMatchBetween(ctx, tx, a, b)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		if created, err = repo.InsertMatchIgnoreConflict(ctx, tx, a, b); err != nil {
			return nil, nil, false, err
		}
		// Re-read with a locking read: a concurrent writer may own the row.
		if m, err = repo.FindMatchBetweenLocked(ctx, tx, a, b); err != nil {
			return nil, nil, false, err
		}
	default:
		return nil, nil, false, err
	}

	if _, err := repo.InsertConversationIgnoreConflict(ctx, tx, m.ID); err != nil {
		return nil, nil, false, err
	}
	conv, err := repo.GetConversationByMatchLocked(ctx, tx, m.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return m, conv, created, nil
}

// requireProfiles maps a missing profile for any of ids to ErrProfileNotFound.
func (s *MatchService) requireProfiles(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		ok, err := repo.ProfileExists(ctx, s.DB, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProfileNotFound
		}
	}
	return nil
}

func (s *MatchService) bumpLikeCount(ctx context.Context, userID string) {
	if s.Likes == nil {
		return
	}
	if err := s.Likes.IncrLikeCount(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("like count cache increment failed")
	}
}

func (s *MatchService) announce(ctx context.Context, m *domain.Match, conv *domain.Conversation) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.MatchCreated(ctx, m, conv); err != nil {
		log.Warn().Err(err).Str("match_id", m.ID).Msg("match notification failed")
	}
}
