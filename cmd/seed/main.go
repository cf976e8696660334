// Command seed fills the configured database with demo accounts, profiles,
// events, likes and the matches they produce. Every account uses the
// password "password123".
//
//	go run ./cmd/seed -users 40 -likes 8 -reset
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-match-backend/internal/config"
	"github.com/tbourn/go-match-backend/internal/repo"
	"github.com/tbourn/go-match-backend/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	opts := seedOptions{}
	flag.IntVar(&opts.Users, "users", 20, "number of accounts to create")
	flag.IntVar(&opts.LikesPerUser, "likes", 6, "random likes sent per user")
	flag.IntVar(&opts.Events, "events", 6, "number of upcoming events")
	flag.BoolVar(&opts.Reset, "reset", sysutil.IsTruthy(os.Getenv("SEED_RESET")), "delete existing data first")
	flag.Float64Var(&opts.CenterLat, "lat", 40.7128, "center latitude")
	flag.Float64Var(&opts.CenterLng, "lng", -74.0060, "center longitude")
	flag.Float64Var(&opts.SpreadKm, "spread-km", 15, "max distance from the center")
	flag.Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		sysutil.ConfigureLogging(os.Stderr, "info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogging(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open db")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sum, err := seed(ctx, db, cfg.Matching, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed")
	}
	log.Info().
		Int("users", sum.Users).
		Int("events", sum.Events).
		Int("likes", sum.Likes).
		Int("matches", sum.Matches).
		Msg("seeding completed")
}
