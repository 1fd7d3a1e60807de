package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrPersistenceUnavailable is logged, never returned to HTTP callers.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

type AuthReason int

const (
	AuthInvalidCredentials AuthReason = iota
	AuthMissingToken
	AuthInvalidToken
)

type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case AuthMissingToken:
		return "Access token required"
	case AuthInvalidToken:
		return "Invalid or expired token"
	default:
		return "Invalid credentials"
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamFetchError means the review listing could not be read. Payload holds the
// decoded upstream body when there was one.
type UpstreamFetchError struct {
	Status  int
	Payload any
	Err     error
}

func (e *UpstreamFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch reviews: upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch reviews: upstream status %d", e.Status)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// UpstreamSubmitError means Judge.me rejected a review. UploadedImages lets an
// operator check the media host even though the review itself was not created.
type UpstreamSubmitError struct {
	Status         int
	Detail         any
	UploadedImages []string
	Err            error
}

func (e *UpstreamSubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit review: upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("submit review: upstream status %d", e.Status)
}

func (e *UpstreamSubmitError) Unwrap() error { return e.Err }
