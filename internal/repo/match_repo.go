// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Match and
// Conversation models.
//
// Match rows are always written in canonical order (user_a_id < user_b_id).
// Inserts use ON CONFLICT DO NOTHING on the unique keys so that concurrent
// writers converge on a single row; callers re-read after inserting.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// CanonicalPair orders two user ids lexicographically.
func CanonicalPair(x, y string) (a, b string) {
	if y < x {
		return y, x
	}
	return x, y
}

// FindMatchBetween looks up the match for x and y in either ordering, so rows
// written before canonicalization are still found. Returns ErrNotFound when
// the pair has no match.
func FindMatchBetween(ctx context.Context, db *gorm.DB, x, y string) (*domain.Match, error) {
	var m domain.Match
	if err := matchBetween(db.WithContext(ctx), x, y).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindMatchBetweenLocked is FindMatchBetween as a shared locking read. Inside
// a REPEATABLE READ transaction (MySQL's default) a plain re-read after a
// conflicting insert still sees the old snapshot; a locking read sees the
// latest committed row. SQLite ignores the lock clause.
func FindMatchBetweenLocked(ctx context.Context, db *gorm.DB, x, y string) (*domain.Match, error) {
	var m domain.Match
	if err := matchBetween(sharedLock(db.WithContext(ctx)), x, y).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func matchBetween(db *gorm.DB, x, y string) *gorm.DB {
	return db.
		Where("(user_a_id = ? AND user_b_id = ?) OR (user_a_id = ? AND user_b_id = ?)", x, y, y, x).
		Order("created_at ASC")
}

func sharedLock(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
}

// InsertMatchIgnoreConflict inserts the canonical pair and silently skips the
// insert when the pair already exists. It reports whether a row was written.
func InsertMatchIgnoreConflict(ctx context.Context, db *gorm.DB, userAID, userBID string) (bool, error) {
	m := &domain.Match{
		ID:        uuid.NewString(),
		UserAID:   userAID,
		UserBID:   userBID,
		CreatedAt: time.Now().UTC(),
	}
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetMatch fetches a match by id, or ErrNotFound.
func GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error) {
	var m domain.Match
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMatchesFor returns every match userID takes part in, ordered
// (created_at ASC, id ASC).
func ListMatchesFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.Match, error) {
	var out []domain.Match
	err := db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountMatchesFor returns how many matches userID takes part in.
func CountMatchesFor(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Count(&n).Error
	return n, err
}

// MatchedUserIDs returns the counterparts of every match userID takes part in.
func MatchedUserIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	ms, err := ListMatchesFor(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.Other(userID))
	}
	return ids, nil
}

// GetConversationByMatch returns the conversation provisioned for matchID,
// or ErrNotFound.
func GetConversationByMatch(ctx context.Context, db *gorm.DB, matchID string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("match_id = ?", matchID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversationByMatchLocked is GetConversationByMatch as a shared locking
// read, for re-reads after InsertConversationIgnoreConflict.
func GetConversationByMatchLocked(ctx context.Context, db *gorm.DB, matchID string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := sharedLock(db.WithContext(ctx)).Where("match_id = ?", matchID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertConversationIgnoreConflict provisions the conversation for matchID
// unless one already exists. It reports whether a row was written.
func InsertConversationIgnoreConflict(ctx context.Context, db *gorm.DB, matchID string) (bool, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		CreatedAt: time.Now().UTC(),
	}
	res := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetConversationWithMatch loads a conversation together with its match, or
// ErrNotFound.
func GetConversationWithMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Preload("Match").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversationsFor returns the conversations of every match userID takes
// part in, most recent first, with both participants' summary columns
// preloaded.
func ListConversationsFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	summary := func(tx *gorm.DB) *gorm.DB { return tx.Select(summaryColumns) }
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN matches ON matches.id = conversations.match_id").
		Where("matches.user_a_id = ? OR matches.user_b_id = ?", userID, userID).
		Preload("Match").
		Preload("Match.UserA", summary).
		Preload("Match.UserB", summary).
		Order("conversations.created_at DESC, conversations.id DESC").
		Find(&out).Error
	return out, err
}
