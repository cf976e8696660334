// Package handlers provides HTTP handler implementations for the public API.
//
// This file owns the response side shared by every endpoint: the error
// envelope, translation of service errors into status codes, and
// conditional GET support through weak ETags.
//
// Example error response:
//
//	HTTP/1.1 403 Forbidden
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "forbidden_conversation",
//	  "message": "not a participant of this conversation"
//	}
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with the error envelope. 5xx responses are logged
// on the request-scoped logger, which already carries request_id and user_id.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// errorRoute maps a service sentinel to its HTTP status and code.
type errorRoute struct {
	err    error
	status int
	code   string
}

// errorRoutes is scanned in order; the first errors.Is match wins.
var errorRoutes = []errorRoute{
	{services.ErrNotAuthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrForbiddenConversation, http.StatusForbidden, ErrCodeForbiddenConversation},
	{services.ErrEmailTaken, http.StatusConflict, ErrCodeEmailTaken},
	{services.ErrSelfLike, http.StatusBadRequest, ErrCodeSelfLike},
	{services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeEmptyMessage},
	{services.ErrMessageTooLong, http.StatusBadRequest, ErrCodeMessageTooLong},
	{services.ErrInvalidProfile, http.StatusBadRequest, ErrCodeInvalidProfile},
	{services.ErrInvalidLocation, http.StatusBadRequest, ErrCodeInvalidLocation},
	{services.ErrTooManyPhotos, http.StatusConflict, ErrCodeTooManyPhotos},
	{services.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia},
	{services.ErrStorageDisabled, http.StatusServiceUnavailable, ErrCodeStorageDisabled},
	{services.ErrInvalidTarget, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrWeakPassword, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrPhotoNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrEventNotFound, http.StatusNotFound, ErrCodeNotFound},
}

// serviceError translates a service error into a response. fallbackCode is
// used for unexpected failures, which are reported as 500.
func serviceError(c *gin.Context, err error, fallbackCode string) {
	for _, r := range errorRoutes {
		if errors.Is(err, r.err) {
			msg := err.Error()
			if r.err == services.ErrNotAuthenticated {
				msg = "authentication required"
			}
			fail(c, r.status, r.code, msg)
			return
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "request cancelled")
		return
	}
	fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
}

//
// Conditional GET
//

// weakETag builds W/"<kind>:<scope>:<count>:<ts>". ts is a UnixNano
// timestamp of the newest row, so two writes in the same second still
// produce different tags.
func weakETag(kind, scope string, count, ts int64) string {
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, scope, count, ts)
}

// notModified sets the ETag header and, when If-None-Match matches it,
// writes 304 and reports true.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// etagMatches applies the weak comparison of RFC 7232 to an If-None-Match
// value, which may be "*" or a comma separated list of tags.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(tag), "W/") == want {
			return true
		}
	}
	return false
}
