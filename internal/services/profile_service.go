// Package services – ProfileService
//
// This file implements ProfileService: owner reads and upserts of profiles,
// location-based discovery (nearby) and free-text profile search.
//
// Upserts validate and normalize input before it reaches the database:
// names are whitespace-collapsed, interests and gender preferences are
// Unicode case-folded and de-duplicated, and the geohash is derived from the
// coordinates. Discovery never returns the caller, users the caller already
// liked or matched, or users inactive for longer than the configured window.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/config"
	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/geo"
	"github.com/tbourn/go-match-backend/internal/repo"
	"github.com/tbourn/go-match-backend/internal/search"
)

// Profile limits.
const (
	MinAge            = 18
	MaxAge            = 120
	MaxDisplayName    = 60
	MaxBioRunes       = 1000
	MaxInterests      = 20
	MaxInterestRunes  = 40
	MaxPhotos         = 6
	MaxGenderRunes    = 32
	DefaultRadiusKm   = 10
	DefaultNearbySize = 50
	DefaultSearchK    = 10
	MaxSearchK        = 50

	// nearbyCandidateCap bounds the rows read from the bounding box before
	// exact distances are computed.
	nearbyCandidateCap = 1000
	// searchCorpusCap bounds how many discoverable profiles are indexed per
	// search.
	searchCorpusCap = 2000
)

// ProfileInput is the owner-editable part of a profile.
type ProfileInput struct {
	DisplayName       string   `json:"display_name" binding:"required" example:"Alice"`
	Age               int      `json:"age" binding:"required" example:"29"`
	Gender            string   `json:"gender" example:"female"`
	PreferencesGender []string `json:"preferences_gender" example:"male"`
	Bio               string   `json:"bio" example:"Coffee, climbing and bad puns."`
	Interests         []string `json:"interests" example:"hiking"`
	Lat               *float64 `json:"lat" example:"40.7128"`
	Lng               *float64 `json:"lng" example:"-74.0060"`
	LocationName      string   `json:"location_name" example:"New York, NY"`
}

// NearbyQuery filters nearby discovery. Zero values take defaults.
type NearbyQuery struct {
	Lat, Lng float64
	RadiusKm float64
	AgeMin   int
	AgeMax   int
	Gender   string
	Limit    int
}

// NearbyProfile is a discovery hit with its distance from the query point.
type NearbyProfile struct {
	domain.Profile
	DistanceKm float64 `json:"distance_km"`
}

// SearchHit is a profile ranked by text similarity.
type SearchHit struct {
	domain.Profile
	Score float64 `json:"score"`
}

// ProfileService provides profile reads, writes and discovery.
type ProfileService struct {
	DB       *gorm.DB
	Matching config.MatchingConfig

	// Stopwords are dropped from search documents and queries.
	Stopwords []string

	now func() time.Time
}

// NewProfileService constructs a ProfileService with default stop words.
func NewProfileService(db *gorm.DB, m config.MatchingConfig) *ProfileService {
	return &ProfileService{DB: db, Matching: m, Stopwords: search.DefaultStopwords, now: time.Now}
}

func (s *ProfileService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Get returns the profile with id.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("profile.id", id)))
	defer span.End()

	p, err := repo.GetProfile(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert validates in and writes it as actorID's profile, creating the row
// on first use. Photos are left untouched.
func (s *ProfileService) Upsert(ctx context.Context, actorID string, in ProfileInput) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Upsert", trace.WithAttributes(attribute.String("user.id", actorID)))
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	p, err := buildProfile(actorID, in)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	p.LastActiveAt = &now

	if err := repo.UpsertProfile(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, actorID)
}

// Nearby lists located, recently active profiles within q.RadiusKm of the
// query point, nearest first. The caller, profiles the caller already liked
// and the caller's matches are excluded.
func (s *ProfileService) Nearby(ctx context.Context, actorID string, q NearbyQuery) ([]NearbyProfile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Nearby",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.Float64("radius_km", q.RadiusKm),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	q, err := s.normalizeNearby(q)
	if err != nil {
		return nil, err
	}

	liked, err := repo.LikedUserIDs(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	matched, err := repo.MatchedUserIDs(ctx, s.DB, actorID)
	if err != nil {
		return nil, err
	}
	exclude := make([]string, 0, 1+len(liked)+len(matched))
	exclude = append(exclude, actorID)
	exclude = append(exclude, liked...)
	exclude = append(exclude, matched...)

	now := s.clock()
	box := geo.BoundingBox(q.Lat, q.Lng, q.RadiusKm)
	candidates, err := repo.ListNearbyCandidates(ctx, s.DB, repo.NearbyFilter{
		MinLat:      box.MinLat,
		MaxLat:      box.MaxLat,
		MinLng:      box.MinLng,
		MaxLng:      box.MaxLng,
		AgeMin:      q.AgeMin,
		AgeMax:      q.AgeMax,
		Gender:      q.Gender,
		ActiveSince: now.Add(-s.activeWindow()),
		ExcludeIDs:  exclude,
		Limit:       nearbyCandidateCap,
	})
	if err != nil {
		return nil, err
	}

	out := make([]NearbyProfile, 0, len(candidates))
	for _, p := range candidates {
		if p.Lat == nil || p.Lng == nil {
			continue
		}
		d := geo.DistanceKm(q.Lat, q.Lng, *p.Lat, *p.Lng)
		if d > q.RadiusKm {
			continue
		}
		out = append(out, NearbyProfile{Profile: p, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}

	if err := repo.TouchLastActive(ctx, s.DB, actorID, now); err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// Search ranks discoverable profiles (other than the caller) by token
// overlap between query and each profile's bio and interests.
func (s *ProfileService) Search(ctx context.Context, actorID, query string, k int) ([]SearchHit, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("user.id", actorID),
			attribute.Int("k", k),
		),
	)
	defer span.End()

	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	if k <= 0 {
		k = DefaultSearchK
	}
	if k > MaxSearchK {
		k = MaxSearchK
	}
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}

	corpus, err := repo.ListDiscoverable(ctx, s.DB, actorID, searchCorpusCap)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Document, 0, len(corpus))
	byID := make(map[string]domain.Profile, len(corpus))
	for _, p := range corpus {
		docs = append(docs, search.ProfileDocument(p.ID, p.Bio, p.Interests))
		byID[p.ID] = p
	}
	idx := search.NewIndex(docs, search.WithStopwords(s.Stopwords))

	results := idx.TopK(query, k)
	out := make([]SearchHit, 0, len(results))
	for _, r := range results {
		out = append(out, SearchHit{Profile: byID[r.ID], Score: r.Score})
	}
	span.SetAttributes(attribute.Int("results", len(out)), attribute.Int("corpus", idx.Len()))
	return out, nil
}

func (s *ProfileService) activeWindow() time.Duration {
	if s.Matching.NearbyActiveWindow > 0 {
		return s.Matching.NearbyActiveWindow
	}
	return 7 * 24 * time.Hour
}

func (s *ProfileService) normalizeNearby(q NearbyQuery) (NearbyQuery, error) {
	if !geo.Valid(q.Lat, q.Lng) {
		return q, fmt.Errorf("%w: lat/lng out of range", ErrInvalidLocation)
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = DefaultRadiusKm
	}
	maxRadius := s.Matching.NearbyMaxRadiusKm
	if maxRadius <= 0 {
		maxRadius = 200
	}
	if q.RadiusKm < 0 || q.RadiusKm > maxRadius {
		return q, fmt.Errorf("%w: radius_km must be in (0, %g]", ErrInvalidLocation, maxRadius)
	}
	if q.AgeMin < MinAge {
		q.AgeMin = MinAge
	}
	if q.AgeMax == 0 || q.AgeMax > MaxAge {
		q.AgeMax = MaxAge
	}
	if q.AgeMin > q.AgeMax {
		return q, fmt.Errorf("%w: age_min must not exceed age_max", ErrInvalidProfile)
	}
	q.Gender = normalizeGender(q.Gender)
	if q.Limit <= 0 || q.Limit > DefaultNearbySize {
		q.Limit = DefaultNearbySize
	}
	return q, nil
}

// buildProfile validates in and maps it onto a Profile for id.
func buildProfile(id string, in ProfileInput) (*domain.Profile, error) {
	name := collapseSpaces(in.DisplayName)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxDisplayName {
		return nil, fmt.Errorf("%w: display_name must be 1..%d characters", ErrInvalidProfile, MaxDisplayName)
	}
	if in.Age < MinAge || in.Age > MaxAge {
		return nil, fmt.Errorf("%w: age must be between %d and %d", ErrInvalidProfile, MinAge, MaxAge)
	}
	bio := strings.TrimSpace(NormalizeMessage(in.Bio))
	if utf8.RuneCountInString(bio) > MaxBioRunes {
		return nil, fmt.Errorf("%w: bio must be at most %d characters", ErrInvalidProfile, MaxBioRunes)
	}
	gender := normalizeGender(in.Gender)
	if utf8.RuneCountInString(gender) > MaxGenderRunes {
		return nil, fmt.Errorf("%w: gender must be at most %d characters", ErrInvalidProfile, MaxGenderRunes)
	}

	interests := foldUnique(in.Interests)
	if len(interests) > MaxInterests {
		return nil, fmt.Errorf("%w: at most %d interests", ErrInvalidProfile, MaxInterests)
	}
	for _, it := range interests {
		if utf8.RuneCountInString(it) > MaxInterestRunes {
			return nil, fmt.Errorf("%w: interest %q is too long", ErrInvalidProfile, it)
		}
	}
	prefs := foldUnique(in.PreferencesGender)

	p := &domain.Profile{
		ID:                id,
		DisplayName:       name,
		Age:               in.Age,
		Gender:            gender,
		PreferencesGender: prefs,
		Bio:               bio,
		Interests:         interests,
		LocationName:      collapseSpaces(in.LocationName),
	}

	switch {
	case in.Lat == nil && in.Lng == nil:
	case in.Lat == nil || in.Lng == nil:
		return nil, fmt.Errorf("%w: lat and lng must be set together", ErrInvalidLocation)
	case !geo.Valid(*in.Lat, *in.Lng):
		return nil, fmt.Errorf("%w: lat/lng out of range", ErrInvalidLocation)
	default:
		lat, lng := *in.Lat, *in.Lng
		p.Lat, p.Lng = &lat, &lng
		p.Geohash = geo.Geohash(lat, lng)
	}
	return p, nil
}

// foldUnique trims, collapses and case-folds each value, dropping blanks and
// duplicates while keeping first-seen order.
func foldUnique(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	fold := cases.Fold()
	for _, v := range in {
		v = fold.String(collapseSpaces(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeGender(s string) string {
	return cases.Lower(language.Und).String(collapseSpaces(s))
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}
