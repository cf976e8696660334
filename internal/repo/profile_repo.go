// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model: point reads, batched lookups for enrichment, owner upserts and the
// candidate queries behind discovery.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-match-backend/internal/domain"
)

// summaryColumns is the projection used when a profile is embedded in chat
// payloads.
var summaryColumns = []string{"id", "display_name", "photo_urls"}

// GetProfile fetches a single profile by id, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileExists reports whether a profile row exists for id.
func ProfileExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Limit(1).Count(&n).Error
	return n > 0, err
}

// GetProfilesByIDs loads the given profiles in one IN query and returns them
// keyed by id. Missing ids are simply absent from the map. When summaryOnly
// is set only the summary columns are read.
func GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string, summaryOnly bool) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Profile
	q := db.WithContext(ctx).Where("id IN ?", ids)
	if summaryOnly {
		q = q.Select(summaryColumns)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// profileUpdatable lists the columns an owner may change through an upsert.
var profileUpdatable = []string{
	"display_name", "age", "gender", "preferences_gender", "bio", "interests",
	"lat", "lng", "geohash", "location_name", "last_active_at", "updated_at",
}

// UpsertProfile inserts p or, when the id already exists, overwrites the
// owner-editable columns. photo_urls is managed separately and never touched
// here on conflict.
func UpsertProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(profileUpdatable),
		}).
		Create(p).Error
}

// UpdatePhotoURLs replaces the ordered photo list of a profile. It returns
// ErrNotFound when no row matched.
func UpdatePhotoURLs(ctx context.Context, db *gorm.DB, id string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	res := db.WithContext(ctx).
		Model(&domain.Profile{ID: id}).
		Select("photo_urls", "updated_at").
		Updates(&domain.Profile{PhotoURLs: urls, UpdatedAt: time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastActive stamps last_active_at for id. Missing rows are ignored.
func TouchLastActive(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at.UTC()).Error
}

// NearbyFilter bounds the candidate query behind nearby discovery. The box
// is a coarse pre-filter; exact distance is computed by the caller.
type NearbyFilter struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	AgeMin, AgeMax int
	Gender         string    // optional exact match
	ActiveSince    time.Time // last_active_at must be >= this
	ExcludeIDs     []string
	Limit          int
}

// ListNearbyCandidates returns located profiles inside the bounding box that
// satisfy the age, gender and activity filters, excluding ExcludeIDs.
func ListNearbyCandidates(ctx context.Context, db *gorm.DB, f NearbyFilter) ([]domain.Profile, error) {
	q := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Where("lat BETWEEN ? AND ?", f.MinLat, f.MaxLat).
		Where("lng BETWEEN ? AND ?", f.MinLng, f.MaxLng).
		Where("age BETWEEN ? AND ?", f.AgeMin, f.AgeMax).
		Where("last_active_at IS NOT NULL AND last_active_at >= ?", f.ActiveSince.UTC())
	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludeIDs)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []domain.Profile
	err := q.Order("id ASC").Find(&out).Error
	return out, err
}

// ListDiscoverable returns profiles other than excludeID that carry a bio or
// interests, most recently active first. limit <= 0 means no limit.
func ListDiscoverable(ctx context.Context, db *gorm.DB, excludeID string, limit int) ([]domain.Profile, error) {
	q := db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("(bio IS NOT NULL AND bio <> '') OR (interests IS NOT NULL AND interests <> '' AND interests <> '[]' AND interests <> 'null')").
		Order("last_active_at DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Profile
	err := q.Find(&out).Error
	return out, err
}
