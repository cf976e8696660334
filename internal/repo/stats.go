// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// MatchesStats returns the number of matches userID takes part in and the
// latest created_at among them (nil when there are none).
func MatchesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Match{}).Where("user_a_id = ? OR user_b_id = ?", userID, userID)
	return countAndLatest(q)
}

// ConversationsStats returns the number of conversations visible to userID
// and the latest created_at among them.
func ConversationsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Joins("JOIN matches ON matches.id = conversations.match_id").
		Where("matches.user_a_id = ? OR matches.user_b_id = ?", userID, userID)
	return countAndLatestColumn(q, "conversations.created_at")
}

// MessagesStats returns aggregate metadata for messages within a
// conversation: the total number of rows and the greatest created_at.
//
// Messages are append-only, so (count, latest) changes on every send.
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)
	return countAndLatest(q)
}

func countAndLatest(q *gorm.DB) (int64, *time.Time, error) {
	return countAndLatestColumn(q, "created_at")
}

func countAndLatestColumn(q *gorm.DB, column string) (count int64, latest *time.Time, err error) {
	// Count
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select(column + " AS created_at").Order(column + " DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
