// Package services – AuthService
//
// This file implements email/password accounts. Passwords are stored as
// bcrypt hashes; successful signup and login return a signed access token
// whose subject is the account id, which is also the profile id.
package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/auth"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// MinPasswordRunes is the shortest accepted password.
const MinPasswordRunes = 8

// TokenIssuer signs access tokens. *auth.Issuer satisfies it.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService registers and authenticates accounts.
type AuthService struct {
	DB     *gorm.DB
	Tokens TokenIssuer
}

// Signup creates an account and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Signup", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordRunes {
		return nil, ErrWeakPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	acct, err := repo.CreateAccount(ctx, s.DB, email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.issue(acct.ID)
}

// Login verifies credentials and returns a fresh token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	acct, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(acct.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(acct.ID)
}

func (s *AuthService) issue(userID string) (*AuthResult, error) {
	tok, exp, err := s.Tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: userID, AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	return raw, nil
}
