// Package services defines the business logic for matching, conversations,
// messages, profiles, events, photos and accounts. This file centralizes the
// service-level error values so they can be returned consistently by service
// methods and checked by callers with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Identity and authorization errors.
var (
	// ErrNotAuthenticated is returned when an operation requires an actor and
	// none was supplied.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the actor lacks the role an operation
	// requires (admin-only paths).
	ErrForbidden = errors.New("forbidden")

	// ErrEmailTaken is returned on signup when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login for an unknown email or a
	// wrong password; the two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakPassword is returned when a signup password is too short.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidEmail is returned when a signup email is malformed.
	ErrInvalidEmail = errors.New("invalid email")
)

// Matching errors.
var (
	// ErrInvalidTarget is returned when a like or match names no target user.
	ErrInvalidTarget = errors.New("target user id is required")

	// ErrSelfLike is returned when a user tries to like or match themselves.
	ErrSelfLike = errors.New("cannot like yourself")

	// ErrProfileNotFound indicates that the referenced profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")
)

// Conversation and message errors.
var (
	// ErrConversationNotFound indicates that the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrForbiddenConversation is returned when the actor is not one of the
	// two participants of the conversation's match.
	ErrForbiddenConversation = errors.New("not a participant of this conversation")

	// ErrEmptyMessage is returned when a message is blank after normalization.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum rune count.
	ErrMessageTooLong = errors.New("message too long")
)

// Profile, photo and event errors.
var (
	// ErrInvalidProfile wraps a profile validation failure; the wrapped text
	// names the offending field.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidLocation is returned for coordinates outside the valid range
	// or an unusable search radius.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrPhotoNotFound is returned when a photo URL is not on the profile or
	// the uploaded object is missing from storage.
	ErrPhotoNotFound = errors.New("photo not found")

	// ErrTooManyPhotos is returned when a profile already holds the maximum
	// number of photos.
	ErrTooManyPhotos = errors.New("too many photos")

	// ErrUnsupportedMedia is returned for an upload content type that is not
	// an accepted image format.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrStorageDisabled is returned by photo operations when no object store
	// is configured.
	ErrStorageDisabled = errors.New("photo storage is not configured")

	// ErrEventNotFound indicates that the requested event does not exist.
	ErrEventNotFound = errors.New("event not found")
)
