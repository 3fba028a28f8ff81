// Package apperr defines the service error taxonomy. Services return these
// sentinels (optionally wrapped with context via fmt.Errorf and %w); HTTP
// handlers map them to status codes in internal/server/respond.
package apperr

import "errors"

var (
	// ErrAuthenticationRequired means no or invalid bearer token.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrForbidden means the caller's resolved role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the referenced committee, motion, or other resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation conflicts with the resource's lifecycle
	// state (voting on a closed motion, duplicate second, re-closing voting).
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation means the request payload is malformed or violates committee settings.
	ErrValidation = errors.New("validation failed")
)
