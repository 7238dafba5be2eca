// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Consistency errors
	ErrDanglingReference = errors.New("dangling reference")
	ErrAggregateDrift    = errors.New("aggregate drift detected")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "pass", "level", "player", "leaderboard"
	Op      string // Operation that failed, e.g., "Submit", "Recompute"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Pass domain errors
var (
	ErrPassNotFound       = NewDomainError("pass", "Find", ErrNotFound, "pass not found")
	ErrPassDeleted        = NewDomainError("pass", "CheckState", ErrInvalidState, "pass is deleted")
	ErrJudgementNotFound  = NewDomainError("pass", "FindJudgement", ErrNotFound, "judgement not found")
	ErrInvalidJudgements  = NewDomainError("pass", "Validate", ErrInvalidInput, "judgement counters cannot be negative")
	ErrInvalidUploadTime  = NewDomainError("pass", "Validate", ErrInvalidInput, "video upload time is required")
	ErrPassAlreadyDeleted = NewDomainError("pass", "Delete", ErrAlreadyProcessed, "pass already deleted")
	ErrPassNotDeleted     = NewDomainError("pass", "Restore", ErrInvalidState, "pass is not deleted")
)

// Level domain errors
var (
	ErrLevelNotFound      = NewDomainError("level", "Find", ErrNotFound, "level not found")
	ErrLevelDeleted       = NewDomainError("level", "CheckState", ErrInvalidState, "level is deleted")
	ErrDifficultyNotFound = NewDomainError("level", "FindDifficulty", ErrNotFound, "difficulty not found")
	ErrInvalidVote        = NewDomainError("level", "Vote", ErrValueOutOfRange, "vote must be between -5 and 5")
	ErrLikeExists         = NewDomainError("level", "Like", ErrAlreadyExists, "level already liked by player")
	ErrLikeNotFound       = NewDomainError("level", "Unlike", ErrNotFound, "like not found")
)

// Player domain errors
var (
	ErrPlayerNotFound   = NewDomainError("player", "Find", ErrNotFound, "player not found")
	ErrStatsNotFound    = NewDomainError("player", "FindStats", ErrNotFound, "player stats not found")
	ErrUnknownMetric    = NewDomainError("player", "Validate", ErrInvalidInput, "unknown ranking metric")
	ErrIdentityNotFound = NewDomainError("player", "ResolveIdentity", ErrNotFound, "no player linked to identity")
)

// Leaderboard domain errors
var (
	ErrInvalidSortColumn = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "sort column not allowed")
	ErrInvalidSortOrder  = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "order must be asc or desc")
	ErrInvalidBannedMode = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "showBanned must be show, hide or only")
	ErrInvalidFilter     = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "malformed filter range")
)
