// Package services – PhotoService
//
// This file implements the profile photo flow. Clients ask for a presigned
// upload URL, PUT the image straight to object storage and then confirm the
// key; only confirmed objects are appended to the profile's ordered
// photo_urls. Deleting a photo removes the URL and, best-effort, the object.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// PhotoStore is the object storage used for photos. *storage.S3Store
// satisfies it.
type PhotoStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
}

// photoExtensions maps accepted upload content types to key extensions.
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

// UploadTicket is what a client needs to upload one photo.
type UploadTicket struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PhotoService manages profile photos.
type PhotoService struct {
	DB *gorm.DB
	// Store is nil when storage is not configured.
	Store PhotoStore

	now func() time.Time
}

// UploadURL presigns a PUT for a new object under actorID's prefix.
func (s *PhotoService) UploadURL(ctx context.Context, actorID, contentType string) (*UploadTicket, error) {
	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "UploadURL", trace.WithAttributes(attribute.String("user.id", actorID)))
	defer span.End()

	if s.Store == nil {
		return nil, ErrStorageDisabled
	}
	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedMedia
	}
	p, err := s.profile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(p.PhotoURLs) >= MaxPhotos {
		return nil, ErrTooManyPhotos
	}

	key := fmt.Sprintf("%s/%d.%s", actorID, s.clock().UnixNano(), ext)
	url, exp, err := s.Store.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	return &UploadTicket{Key: key, UploadURL: url, PublicURL: s.Store.PublicURL(key), ExpiresAt: exp}, nil
}

// Confirm verifies that key was uploaded and appends its public URL to the
// profile. Confirming the same key twice is a no-op.
func (s *PhotoService) Confirm(ctx context.Context, actorID, key string) (*domain.Profile, error) {
	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.String("photo.key", key),
		),
	)
	defer span.End()

	if s.Store == nil {
		return nil, ErrStorageDisabled
	}
	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	key = strings.TrimSpace(key)
	if !ownsKey(actorID, key) {
		return nil, ErrForbidden
	}
	p, err := s.profile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	url := s.Store.PublicURL(key)
	for _, u := range p.PhotoURLs {
		if u == url {
			return p, nil
		}
	}
	if len(p.PhotoURLs) >= MaxPhotos {
		return nil, ErrTooManyPhotos
	}

	exists, err := s.Store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPhotoNotFound
	}

	urls := append(append([]string{}, p.PhotoURLs...), url)
	if err := repo.UpdatePhotoURLs(ctx, s.DB, actorID, urls); err != nil {
		return nil, err
	}
	p.PhotoURLs = urls
	return p, nil
}

// Delete removes url from the profile and deletes the backing object when
// it lives in the configured bucket under actorID's prefix.
func (s *PhotoService) Delete(ctx context.Context, actorID, url string) (*domain.Profile, error) {
	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("user.id", actorID)))
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	p, err := s.profile(ctx, actorID)
	if err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	idx := -1
	for i, u := range p.PhotoURLs {
		if u == url {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPhotoNotFound
	}

	urls := make([]string, 0, len(p.PhotoURLs)-1)
	urls = append(urls, p.PhotoURLs[:idx]...)
	urls = append(urls, p.PhotoURLs[idx+1:]...)
	if err := repo.UpdatePhotoURLs(ctx, s.DB, actorID, urls); err != nil {
		return nil, err
	}
	p.PhotoURLs = urls

	if s.Store != nil {
		if key, ok := s.Store.KeyFromURL(url); ok && ownsKey(actorID, key) {
			if err := s.Store.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("photo object not deleted")
			}
		}
	}
	return p, nil
}

func (s *PhotoService) profile(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := repo.GetProfile(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PhotoService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// ownsKey reports whether key sits directly under userID's prefix.
func ownsKey(userID, key string) bool {
	rest, ok := strings.CutPrefix(key, userID+"/")
	return ok && rest != "" && !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
}
