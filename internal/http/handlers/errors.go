// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes give
// clients a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase and snake_case.
//   - Generic codes (bad_request, unauthorized, conflict, ...) mirror common
//     HTTP status semantics.
//   - Domain-specific codes (self_like, message_too_long, ...) are reserved
//     for business rule violations that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden_conversation",
//	  "message": "not a participant of this conversation"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed          = "create_failed"
	ErrCodeListFailed            = "list_failed"
	ErrCodeMethodNotAllowed      = "method_not_allowed"
	ErrCodeInvalidCredentials    = "invalid_credentials"
	ErrCodeEmailTaken            = "email_taken"
	ErrCodeSelfLike              = "self_like"
	ErrCodeLikeFailed            = "like_failed"
	ErrCodeForbiddenConversation = "forbidden_conversation"
	ErrCodeEmptyMessage          = "empty_message"
	ErrCodeMessageTooLong        = "message_too_long"
	ErrCodeInvalidProfile        = "invalid_profile"
	ErrCodeInvalidLocation       = "invalid_location"
	ErrCodeTooManyPhotos         = "too_many_photos"
	ErrCodeUnsupportedMedia      = "unsupported_media_type"
	ErrCodeStorageDisabled       = "storage_disabled"
)
