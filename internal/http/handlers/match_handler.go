// Like and match HTTP handlers.
//
// This file exposes the matching endpoints:
//   - POST /likes           (like a user; reciprocal likes become a match)
//   - GET  /matches         (caller's matches, ETag support)
//   - POST /admin/matches   (pair two users directly; admin only)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/services"
)

// LikeRequest is the JSON payload for liking a user.
type LikeRequest struct {
	ToUserID string `json:"to_user_id" binding:"required" example:"b7f7c1de-52f8-4f4e-9d43-3f7a2a1c9b10"`
}

// LikeFailedResponse is the 500 body returned when the like was stored but
// resolving the match failed. Repeating the like resolves the match.
type LikeFailedResponse struct {
	ErrorResponse
	Like *domain.Like `json:"like"`
}

// CreateMatchRequest is the JSON payload for the admin match endpoint.
type CreateMatchRequest struct {
	UserAID string `json:"user_a_id" binding:"required"`
	UserBID string `json:"user_b_id" binding:"required"`
}

// ListMatchesResponse wraps the caller's matches.
type ListMatchesResponse struct {
	Matches []domain.Match `json:"matches"`
}

// LikeUser godoc
// @ID          likeUser
// @Summary     Like a user
// @Description Records a like. When the target already liked the caller, the pair is matched and a
// @Description conversation is opened. Liking the same user twice writes nothing and reports the current state.
// @Tags        Matches
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.LikeRequest  true  "Target user"
// @Success     201   {object}  services.LikeResult   "Like recorded"
// @Success     200   {object}  services.LikeResult   "Already liked"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request or self-like"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404   {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     500   {object}  handlers.LikeFailedResponse  "Like stored, match resolution failed"
// @Router      /likes [post]
func (h *Handlers) LikeUser(c *gin.Context) {
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "to_user_id required")
		return
	}
	res, err := h.matchSvc.LikeUser(c.Request.Context(), userID(c), strings.TrimSpace(req.ToUserID))
	if err != nil {
		if res != nil && res.Like != nil {
			// The like is stored; only match resolution failed.
			middleware.LoggerFrom(c).Error().Err(err).Str("like_id", res.Like.ID).Msg("match resolution failed after like")
			c.AbortWithStatusJSON(http.StatusInternalServerError, LikeFailedResponse{
				ErrorResponse: ErrorResponse{
					RequestID: c.Writer.Header().Get("X-Request-ID"),
					Code:      ErrCodeLikeFailed,
					Message:   "like stored but match resolution failed; retry the like",
				},
				Like: res.Like,
			})
			return
		}
		serviceError(c, err, ErrCodeLikeFailed)
		return
	}
	status := http.StatusCreated
	if res.AlreadyLiked {
		status = http.StatusOK
	}
	ok(c, status, res)
}

// ListMatches godoc
// @ID          listMatches
// @Summary     List my matches
// @Description Returns every match of the caller ordered by creation. The counterpart side carries
// @Description the full profile. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Matches
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header    string  false  "Return 304 if ETag matches"
// @Success     200            {object}  handlers.ListMatchesResponse
// @Header      200            {string}  ETag  "Weak ETag for current result"
// @Success     304            {string}  string  "Not Modified"
// @Failure     401            {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500            {object}  handlers.ErrorResponse  "Internal error"
// @Router      /matches [get]
func (h *Handlers) ListMatches(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		serviceError(c, services.ErrNotAuthenticated, ErrCodeListFailed)
		return
	}

	// ETag pre-check (best effort).
	if count, ts, err := h.matchSvc.MatchesVersion(ctx, uid); err == nil {
		if notModified(c, weakETag("matches", uid, count, ts)) {
			return
		}
	}

	items, err := h.matchSvc.GetMatches(ctx, uid)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListMatchesResponse{Matches: items})
}

// CreateMatch godoc
// @ID          createMatch
// @Summary     Pair two users (admin)
// @Description Creates the canonical match and its conversation without the reciprocal-like check.
// @Description Repeated calls, in either order, return the same match.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateMatchRequest  true  "Users to pair"
// @Success     201   {object}  services.MatchResult  "Match created"
// @Success     200   {object}  services.MatchResult  "Match already existed"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     404   {object}  handlers.ErrorResponse  "Profile not found"
// @Router      /admin/matches [post]
func (h *Handlers) CreateMatch(c *gin.Context) {
	var req CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_a_id and user_b_id required")
		return
	}
	res, err := h.matchSvc.CreateMatch(c.Request.Context(), userID(c),
		strings.TrimSpace(req.UserAID), strings.TrimSpace(req.UserBID))
	if err != nil {
		if errors.Is(err, services.ErrSelfLike) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot match a user with themselves")
			return
		}
		serviceError(c, err, ErrCodeCreateFailed)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	ok(c, status, res)
}
