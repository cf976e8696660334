// Command server runs the matching API.
//
//	@title						Match API
//	@version					1.0
//	@description				Profiles, discovery, mutual-like matching, conversations and realtime delivery.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				"Bearer <access_token>" as returned by /auth/signup or /auth/login.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/auth"
	"github.com/tbourn/go-match-backend/internal/cache"
	"github.com/tbourn/go-match-backend/internal/config"
	httpapi "github.com/tbourn/go-match-backend/internal/http"
	"github.com/tbourn/go-match-backend/internal/observability"
	"github.com/tbourn/go-match-backend/internal/realtime"
	"github.com/tbourn/go-match-backend/internal/repo"
	"github.com/tbourn/go-match-backend/internal/storage"
	"github.com/tbourn/go-match-backend/internal/sysutil"
)

const (
	shutdownGrace = 15 * time.Second
	purgeEvery    = 10 * time.Minute
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.ConfigureLogging(os.Stderr, "info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogging(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	version := sysutil.Version()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, version); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, version string) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	hub := realtime.NewHub()
	deps := httpapi.Deps{
		Tokens: auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL),
		Hub:    hub,
		Ready:  map[string]httpapi.Pinger{},
	}

	var bridge *realtime.RedisBridge
	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()

		likes := cache.NewRedisCache(client, cfg.Redis.LikeCountTTL)
		if err := likes.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable yet")
		}
		bridge = realtime.NewRedisBridge(client, hub)
		deps.Likes = likes
		deps.Publisher = bridge
		deps.Ready["redis"] = likes
	}

	if cfg.S3.Enabled() {
		store, err := storage.NewS3Store(cfg.S3)
		if err != nil {
			return err
		}
		deps.Photos = store
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("db", cfg.DB.Driver).
			Bool("redis", cfg.Redis.Enabled()).
			Bool("photos", cfg.S3.Enabled()).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(sctx)
	})

	if bridge != nil {
		g.Go(func() error {
			runBridge(gctx, bridge)
			return nil
		})
	}

	g.Go(func() error {
		purgeIdempotency(gctx, db, purgeEvery)
		return nil
	})

	return g.Wait()
}

// runBridge keeps the Redis relay subscribed, resubscribing after failures
// until ctx is done. Local delivery stops while Redis is unreachable.
func runBridge(ctx context.Context, b *realtime.RedisBridge) {
	backoff := time.Second
	for {
		err := b.Run(ctx, nil)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("realtime bridge disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
