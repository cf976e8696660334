// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the service contracts consumed by the handlers, the
// Handlers wiring type, caller identity and pagination.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/realtime"
	"github.com/tbourn/go-match-backend/internal/services"
	"github.com/tbourn/go-match-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService registers and authenticates accounts.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
}

// ProfileService reads, writes and discovers profiles.
type ProfileService interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Upsert(ctx context.Context, actorID string, in services.ProfileInput) (*domain.Profile, error)
	Nearby(ctx context.Context, actorID string, q services.NearbyQuery) ([]services.NearbyProfile, error)
	Search(ctx context.Context, actorID, query string, k int) ([]services.SearchHit, error)
}

// MatchService owns likes and matches.
type MatchService interface {
	LikeUser(ctx context.Context, actorID, toUserID string) (*services.LikeResult, error)
	CreateMatch(ctx context.Context, actorID, userAID, userBID string) (*services.MatchResult, error)
	GetMatches(ctx context.Context, actorID string) ([]domain.Match, error)
	MatchesVersion(ctx context.Context, actorID string) (int64, int64, error)
}

// ConversationService lists conversations and checks membership.
type ConversationService interface {
	List(ctx context.Context, actorID string) ([]domain.Conversation, error)
	Authorize(ctx context.Context, actorID, conversationID string) (*domain.Conversation, error)
	ListVersion(ctx context.Context, actorID string) (int64, int64, error)
}

// MessageService reads and sends chat messages.
type MessageService interface {
	ListPage(ctx context.Context, actorID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	SendIdempotent(ctx context.Context, actorID, conversationID, text, key string) (*domain.Message, bool, error)
	MessagesVersion(ctx context.Context, actorID, conversationID string) (int64, int64, error)
}

// EventService lists community events.
type EventService interface {
	ListPage(ctx context.Context, page, pageSize int) ([]services.EventView, int64, error)
	Get(ctx context.Context, id string) (*services.EventView, error)
}

// PhotoService manages profile photos.
type PhotoService interface {
	UploadURL(ctx context.Context, actorID, contentType string) (*services.UploadTicket, error)
	Confirm(ctx context.Context, actorID, key string) (*domain.Profile, error)
	Delete(ctx context.Context, actorID, url string) (*domain.Profile, error)
}

// StatsService reports per-user counters.
type StatsService interface {
	ForUser(ctx context.Context, actorID string) (*services.UserStats, error)
}

//
// Handler wiring
//

// Deps carries the services bound to Handlers. Hub may be nil, in which case
// the realtime endpoint answers 503.
type Deps struct {
	Auth          AuthService
	Profiles      ProfileService
	Matches       MatchService
	Conversations ConversationService
	Messages      MessageService
	Events        EventService
	Photos        PhotoService
	Stats         StatsService
	Hub           *realtime.Hub
}

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	profileSvc ProfileService
	matchSvc   MatchService
	convSvc    ConversationService
	msgSvc     MessageService
	eventSvc   EventService
	photoSvc   PhotoService
	statsSvc   StatsService
	hub        *realtime.Hub
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		authSvc:    d.Auth,
		profileSvc: d.Profiles,
		matchSvc:   d.Matches,
		convSvc:    d.Conversations,
		msgSvc:     d.Messages,
		eventSvc:   d.Events,
		photoSvc:   d.Photos,
		statsSvc:   d.Stats,
		hub:        d.Hub,
	}
}

// userID returns the authenticated user id set by the auth middleware, or ""
// when the request is anonymous.
func userID(c *gin.Context) string { return middleware.UserID(c) }

//
// Pagination
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
