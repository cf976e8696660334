// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Like
// model (directed "A likes B" edges).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// CreateLike inserts the directed edge from -> to. A second insert for the
// same pair returns ErrDuplicate.
func CreateLike(ctx context.Context, db *gorm.DB, fromUserID, toUserID string) (*domain.Like, error) {
	l := &domain.Like{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("From", "To").Create(l).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// GetLike returns the edge from -> to, or ErrNotFound.
func GetLike(ctx context.Context, db *gorm.DB, fromUserID, toUserID string) (*domain.Like, error) {
	var l domain.Like
	err := db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LikeExists reports whether the edge from -> to exists.
func LikeExists(ctx context.Context, db *gorm.DB, fromUserID, toUserID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Like{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// CountLikesReceived returns how many users liked userID.
func CountLikesReceived(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Like{}).Where("to_user_id = ?", userID).Count(&n).Error
	return n, err
}

// LikedUserIDs returns the ids userID has liked.
func LikedUserIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Like{}).
		Where("from_user_id = ?", userID).
		Pluck("to_user_id", &ids).Error
	return ids, err
}
