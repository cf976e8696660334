// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
//
// Routes are split into three tiers under the API base path:
//   - public: signup, login and the events catalogue;
//   - authenticated: profiles, discovery, likes, matches, conversations,
//     messages, photos, stats and the realtime websocket;
//   - admin: manual match creation.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-match-backend/docs"
	"github.com/tbourn/go-match-backend/internal/auth"
	"github.com/tbourn/go-match-backend/internal/cache"
	"github.com/tbourn/go-match-backend/internal/config"
	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/http/handlers"
	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/realtime"
	"github.com/tbourn/go-match-backend/internal/repo"
	"github.com/tbourn/go-match-backend/internal/services"
)

// conversationRepoShim adapts the repository free functions to the
// services.ConversationRepo interface.
type conversationRepoShim struct{}

// GetConversationWithMatch proxies repo.GetConversationWithMatch.
func (conversationRepoShim) GetConversationWithMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversationWithMatch(ctx, db, id)
}

// ListConversationsFor proxies repo.ListConversationsFor.
func (conversationRepoShim) ListConversationsFor(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	return repo.ListConversationsFor(ctx, db, userID)
}

// Pinger is a dependency probed by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries the process-level collaborators built in main. Zero values
// degrade gracefully: no Publisher delivers to Hub in-process, no Likes
// skips the like-count cache and no Photos disables photo endpoints.
type Deps struct {
	Tokens    *auth.Issuer
	Hub       *realtime.Hub
	Publisher realtime.Publisher
	Likes     cache.LikeCounter
	Photos    services.PhotoStore
	// Ready lists extra probes for /ready (e.g. Redis), keyed by name.
	Ready map[string]Pinger
}

// bodyLimit caps request bodies on every route.
const bodyLimit = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Auth: resolve the caller (user-keyed limits and idempotency need it)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	wsPath := joinPath(apiBase, "/realtime/ws")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(bodyLimit))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPath, "/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var tokens middleware.TokenParser
	if deps.Tokens != nil {
		tokens = deps.Tokens
	}
	r.Use(middleware.Auth(middleware.AuthOptions{
		Tokens:          tokens,
		DevHeader:       cfg.Auth.DevHeader,
		QueryTokenPaths: []string{wsPath},
	}))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, ScopeParam: "id"},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		Name:  "api",
		RPS:   cfg.RateRPS,
		Burst: cfg.RateBurst,
	})
	r.Use(rl.Handler())

	exposed := []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotencyReplayed}
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderDevUserID, middleware.HeaderIdempotencyKey}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even without an Origin header (simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposed,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposed,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		CacheControl:  middleware.DefaultCacheControl,
		EnablePolicy:  true,
		ExposeHeaders: exposed,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readiness(db, deps.Ready))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(buildServices(db, cfg, deps))

	api := groupWithPrefix(r, apiBase)
	{
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)

		api.GET("/events", h.ListEvents)
		api.GET("/events/:id", h.GetEvent)
	}

	authed := api.Group("", middleware.RequireAuth())
	{
		authed.GET("/profiles/me", h.GetMyProfile)
		authed.PUT("/profiles/me", h.PutMyProfile)
		authed.GET("/profiles/nearby", h.NearbyProfiles)
		authed.GET("/profiles/search", h.SearchProfiles)
		authed.GET("/profiles/:id", h.GetProfile)

		authed.POST("/profiles/me/photos/upload-url", h.PhotoUploadURL)
		authed.POST("/profiles/me/photos", h.ConfirmPhoto)
		authed.DELETE("/profiles/me/photos", h.DeletePhoto)

		likes := middleware.NewRateLimiter(middleware.RateLimitOptions{
			Name:  "likes",
			RPS:   cfg.LikeRateRPS,
			Burst: cfg.LikeRateBurst,
		})
		authed.POST("/likes", likes.Handler(), h.LikeUser)
		authed.GET("/matches", h.ListMatches)

		authed.GET("/conversations", h.ListConversations)
		authed.GET("/conversations/:id/messages", h.ListMessages)
		authed.POST("/conversations/:id/messages", h.PostMessage)

		authed.GET("/me/stats", h.MyStats)
		authed.GET("/realtime/ws", h.Realtime)
	}

	admin := api.Group("/admin", middleware.RequireAdmin(cfg.Auth.IsAdmin))
	{
		admin.POST("/matches", h.CreateMatch)
	}
}

// buildServices constructs the service graph behind the handlers.
func buildServices(db *gorm.DB, cfg config.Config, deps Deps) handlers.Deps {
	likes := deps.Likes
	if likes == nil {
		likes = cache.Nop{}
	}

	var notifier *realtime.Notifier
	switch {
	case deps.Publisher != nil:
		notifier = realtime.NewNotifier(deps.Publisher)
	case deps.Hub != nil:
		notifier = realtime.NewNotifier(realtime.LocalPublisher{Hub: deps.Hub})
	}

	convSvc := services.NewConversationService(db, conversationRepoShim{})

	matchSvc := services.NewMatchService(db, cfg.Auth)
	matchSvc.Likes = likes
	msgSvc := &services.MessageService{
		DB:             db,
		Conversations:  convSvc,
		MaxRunes:       cfg.Matching.MessageMaxRunes,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	if notifier != nil {
		matchSvc.Notifier = notifier
		msgSvc.Notifier = notifier
	}

	var tokens services.TokenIssuer
	if deps.Tokens != nil {
		tokens = deps.Tokens
	}

	return handlers.Deps{
		Auth:          &services.AuthService{DB: db, Tokens: tokens},
		Profiles:      services.NewProfileService(db, cfg.Matching),
		Matches:       matchSvc,
		Conversations: convSvc,
		Messages:      msgSvc,
		Events:        &services.EventService{DB: db},
		Photos:        &services.PhotoService{DB: db, Store: deps.Photos},
		Stats:         &services.StatsService{DB: db, Likes: likes},
		Hub:           deps.Hub,
	}
}

// readiness pings the database and every extra probe. It answers 503 with
// the failing dependency names.
func readiness(db *gorm.DB, probes map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := []string{}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			failed = append(failed, "db")
		}
		for name, p := range probes {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath appends p to a normalized base path.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
