// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. Auth reads a bearer token from
// the Authorization header (or the access_token query parameter on routes
// that allow it, such as the websocket upgrade), verifies it and stores the
// user id in the Gin context under "userID". RequireAuth and RequireAdmin
// gate route groups on that identity.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// userIDKey is the Gin context key holding the authenticated user id.
	userIDKey = "userID"
	// HeaderDevUserID carries the actor in local development when enabled.
	HeaderDevUserID = "X-User-ID"
	// QueryAccessToken is the query parameter accepted in place of the
	// Authorization header when AuthOptions.QueryTokenPaths allows it.
	QueryAccessToken = "access_token"
)

// TokenParser verifies an access token and returns its subject.
// *auth.Issuer satisfies it.
type TokenParser interface {
	Parse(raw string) (userID string, err error)
}

// AuthOptions configures Auth.
type AuthOptions struct {
	Tokens TokenParser
	// DevHeader trusts X-User-ID when no token is presented. Local use only.
	DevHeader bool
	// QueryTokenPaths lists route paths (gin FullPath) that may pass the token
	// as ?access_token=.
	QueryTokenPaths []string
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Auth identifies the caller without rejecting anonymous requests. A token
// that is present but invalid is rejected with 401 so clients notice expired
// sessions instead of silently acting anonymously.
func Auth(opts AuthOptions) gin.HandlerFunc {
	queryPaths := make(map[string]struct{}, len(opts.QueryTokenPaths))
	for _, p := range opts.QueryTokenPaths {
		queryPaths[p] = struct{}{}
	}

	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if _, ok := queryPaths[c.FullPath()]; ok {
				raw = strings.TrimSpace(c.Query(QueryAccessToken))
			}
		}

		switch {
		case raw != "" && opts.Tokens != nil:
			uid, err := opts.Tokens.Parse(raw)
			if err != nil {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			setUser(c, uid)
		case opts.DevHeader:
			if uid := strings.TrimSpace(c.GetHeader(HeaderDevUserID)); uid != "" {
				setUser(c, uid)
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, uid string) {
	c.Set(userIDKey, uid)
	withLogFields(c, "user_id", uid)
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers for whom isAdmin is false with 403.
// Anonymous callers get 401.
func RequireAdmin(isAdmin func(userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserID(c)
		if uid == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if isAdmin == nil || !isAdmin(uid) {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin only")
			return
		}
		c.Next()
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
func bearerToken(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// abortJSON writes the standard error envelope. Middleware cannot import the
// handlers package, so the shape is repeated here.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
