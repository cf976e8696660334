// Package services – StatsService
//
// This file implements the per-user counters behind /me/stats. The likes
// received counter is served from the cache when present and recomputed from
// the database (then cached) on a miss or cache failure.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/cache"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// UserStats are the caller's headline numbers.
type UserStats struct {
	LikesReceived int64 `json:"likes_received"`
	Matches       int64 `json:"matches"`
}

// StatsService computes UserStats.
type StatsService struct {
	DB    *gorm.DB
	Likes cache.LikeCounter
}

// ForUser returns the stats of actorID.
func (s *StatsService) ForUser(ctx context.Context, actorID string) (*UserStats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "ForUser", trace.WithAttributes(attribute.String("user.id", actorID)))
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	likes, hit, err := s.likesReceived(ctx, actorID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	matches, err := repo.CountMatchesFor(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	return &UserStats{LikesReceived: likes, Matches: matches}, nil
}

func (s *StatsService) likesReceived(ctx context.Context, userID string) (int64, bool, error) {
	if s.Likes != nil {
		n, ok, err := s.Likes.GetLikeCount(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("like count cache read failed")
		} else if ok {
			return n, true, nil
		}
	}
	n, err := repo.CountLikesReceived(ctx, s.DB, userID)
	if err != nil {
		return 0, false, err
	}
	if s.Likes != nil {
		if err := s.Likes.SetLikeCount(ctx, userID, n); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("like count cache write failed")
		}
	}
	return n, false, nil
}
