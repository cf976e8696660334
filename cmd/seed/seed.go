package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/auth"
	"github.com/tbourn/go-match-backend/internal/config"
	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
	"github.com/tbourn/go-match-backend/internal/services"
)

// seedPassword is shared by every seeded account.
const seedPassword = "password123"

// seedOptions controls how much data is generated.
type seedOptions struct {
	Users        int
	LikesPerUser int
	Events       int
	Reset        bool
	// Center is the point profiles and events are scattered around.
	CenterLat, CenterLng float64
	SpreadKm             float64
	Seed                 int64
}

// seedSummary reports what was written.
type seedSummary struct {
	Users   int
	Events  int
	Likes   int
	Matches int
}

var (
	firstNames = []string{"Alex", "Sam", "Jordan", "Taylor", "Morgan", "Riley", "Casey", "Jamie", "Avery", "Quinn", "Robin", "Drew"}
	genders    = []string{"female", "male", "nonbinary"}
	interests  = []string{"hiking", "climbing", "coffee", "jazz", "cooking", "running", "board games", "photography", "travel", "yoga", "cycling", "film"}
	bios       = []string{
		"Weekend hiker, weekday coffee snob.",
		"Looking for someone to cook for.",
		"Jazz on vinyl and long walks.",
		"Will beat you at board games.",
		"Always planning the next trip.",
	}
	eventTitles = []string{"Rooftop Mixer", "Trivia Night", "Sunset Hike", "Salsa Basics", "Board Game Social", "Gallery Walk"}
)

// tables lists every table child first so deletes never trip foreign keys.
var tables = []any{
	&domain.Message{},
	&domain.Conversation{},
	&domain.Match{},
	&domain.Like{},
	&domain.Event{},
	&domain.Profile{},
	&domain.Account{},
	&domain.Idempotency{},
}

func resetTables(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range tables {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// seed writes accounts, profiles and events, then likes random pairs through
// MatchService so matches and conversations follow the real protocol.
func seed(ctx context.Context, db *gorm.DB, m config.MatchingConfig, opts seedOptions) (*seedSummary, error) {
	if opts.Users < 2 {
		return nil, errors.New("seed: need at least 2 users")
	}
	if opts.Reset {
		if err := resetTables(ctx, db); err != nil {
			return nil, err
		}
		log.Info().Msg("cleared existing data")
	}

	rnd := rand.New(rand.NewSource(opts.Seed))
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return nil, err
	}

	profiles := services.NewProfileService(db, m)
	matches := services.NewMatchService(db, nil)
	sum := &seedSummary{}

	ids := make([]string, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		acct, err := repo.CreateAccount(ctx, db, email, hash)
		if errors.Is(err, repo.ErrDuplicate) {
			acct, err = repo.GetAccountByEmail(ctx, db, email)
		}
		if err != nil {
			return nil, fmt.Errorf("seed account %s: %w", email, err)
		}

		lat, lng := scatter(rnd, opts.CenterLat, opts.CenterLng, opts.SpreadKm)
		in := services.ProfileInput{
			DisplayName:       fmt.Sprintf("%s %d", firstNames[rnd.Intn(len(firstNames))], i),
			Age:               services.MinAge + rnd.Intn(30),
			Gender:            genders[i%len(genders)],
			PreferencesGender: []string{genders[rnd.Intn(len(genders))]},
			Bio:               bios[rnd.Intn(len(bios))],
			Interests:         pick(rnd, interests, 3),
			Lat:               &lat,
			Lng:               &lng,
		}
		if _, err := profiles.Upsert(ctx, acct.ID, in); err != nil {
			return nil, fmt.Errorf("seed profile %s: %w", email, err)
		}
		ids = append(ids, acct.ID)
	}
	sum.Users = len(ids)

	now := time.Now().UTC()
	for i := 0; i < opts.Events; i++ {
		lat, lng := scatter(rnd, opts.CenterLat, opts.CenterLng, opts.SpreadKm)
		ev := &domain.Event{
			Title:           eventTitles[i%len(eventTitles)],
			Category:        "social",
			Description:     "Meet people nearby.",
			Lat:             &lat,
			Lng:             &lng,
			StartsAt:        now.Add(time.Duration(24*(i+1)) * time.Hour).Truncate(time.Hour),
			MaxParticipants: 10 + 10*rnd.Intn(5),
		}
		if err := repo.CreateEvent(ctx, db, ev); err != nil {
			return nil, fmt.Errorf("seed event: %w", err)
		}
		sum.Events++
	}

	for _, from := range ids {
		for j := 0; j < opts.LikesPerUser; j++ {
			to := ids[rnd.Intn(len(ids))]
			if to == from {
				continue
			}
			res, err := matches.LikeUser(ctx, from, to)
			if err != nil {
				return nil, fmt.Errorf("seed like %s->%s: %w", from, to, err)
			}
			if res.AlreadyLiked {
				continue
			}
			sum.Likes++
			if res.MatchCreated {
				sum.Matches++
			}
		}
	}
	return sum, nil
}

// scatter returns a point within spreadKm of (lat, lng). One degree of
// latitude is ~111 km; longitude shrinks with cos(lat), which is ignored at
// city scale.
func scatter(rnd *rand.Rand, lat, lng, spreadKm float64) (float64, float64) {
	d := spreadKm / 111.0
	return lat + (rnd.Float64()*2-1)*d, lng + (rnd.Float64()*2-1)*d
}

// pick returns n distinct values from vals in random order.
func pick(rnd *rand.Rand, vals []string, n int) []string {
	n = min(n, len(vals))
	out := make([]string, 0, n)
	for _, i := range rnd.Perm(len(vals))[:n] {
		out = append(out, vals[i])
	}
	return out
}
