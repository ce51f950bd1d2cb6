// internal/errors/errors.go
package errors

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Domain errors surfaced by the interaction engine and delivery pipeline.
// Gateway code maps these to wire error codes; everything else compares
// with errors.Is.
var (
	// ErrSelfReference is returned when a user views/likes themselves.
	ErrSelfReference = errors.New("cannot target yourself")

	// ErrInvalidTarget is returned when the targeted user id is unknown.
	ErrInvalidTarget = errors.New("target user does not exist")

	// ErrNoActiveMatch is returned when messaging a user without a
	// current match.
	ErrNoActiveMatch = errors.New("no active match with recipient")

	// ErrEmptyContent is returned for messages with empty content.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrTransactionConflict is returned after the engine exhausts its
	// retry budget on concurrent pair writes.
	ErrTransactionConflict = errors.New("conflicting concurrent update")

	// ErrPresenceStale is returned by a push to a superseded or closed
	// connection handle. Callers treat it as "recipient offline".
	ErrPresenceStale = errors.New("stale presence handle")

	// ErrUnavailable wraps durable store outages. Retryable by clients,
	// never leaves partially applied state behind.
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// Wire error codes carried in outbound error frames.
const (
	CodeSelfReference = "self_reference"
	CodeInvalidTarget = "invalid_target"
	CodeNoActiveMatch = "no_active_match"
	CodeEmptyContent  = "empty_content"
	CodeConflict      = "conflict"
	CodeUnavailable   = "unavailable"
	CodeBadFrame      = "bad_frame"
	CodeInternal      = "internal"
)

// Code maps a domain error to its wire code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrSelfReference):
		return CodeSelfReference
	case errors.Is(err, ErrInvalidTarget):
		return CodeInvalidTarget
	case errors.Is(err, ErrNoActiveMatch):
		return CodeNoActiveMatch
	case errors.Is(err, ErrEmptyContent):
		return CodeEmptyContent
	case errors.Is(err, ErrTransactionConflict):
		return CodeConflict
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Map converts repo/infra errors into domain errors. Keeps the engine and
// pipeline clean by centralizing the translation.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrInvalidTarget

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrUnavailable

	default:
		return err
	}
}
