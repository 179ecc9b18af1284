package review

import (
	"fmt"

	"github.com/snditnz/verbumcare/internal/entity"
	"github.com/snditnz/verbumcare/pkg/categorize"
	"github.com/snditnz/verbumcare/pkg/response"
)

var (
	ErrReviewNotFound    = response.NewError(404, "review item not found")
	ErrNotOwner          = response.NewError(403, "review item belongs to another user")
	ErrInvalidTransition = response.NewError(409, "invalid review status transition")
	ErrNotConfirmable    = response.NewError(409, "review item is not in a confirmable state")
	ErrDuplicateReview   = response.NewError(409, "review item already exists for this recording")
	ErrEmptyTranscript   = response.NewError(400, "transcript must not be empty")
)

// ValidationFailedError carries the per-category issues so the client can
// show which fields block the confirm.
type ValidationFailedError struct {
	Issues map[entity.CategoryType][]categorize.ValidationIssue
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed for %d categories", len(e.Issues))
}

// PersistenceTransientError: the confirm transaction kept conflicting after
// its retry budget. The item is unchanged; the caller may retry.
type PersistenceTransientError struct {
	Attempts int
	Err      error
}

func (e *PersistenceTransientError) Error() string {
	return fmt.Sprintf("confirm failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PersistenceTransientError) Unwrap() error { return e.Err }

func (e *PersistenceTransientError) Retryable() bool { return true }

// PersistenceFatalError: a constraint rejected one category's insert. The
// transaction was rolled back in full and the item is unchanged.
type PersistenceFatalError struct {
	Category entity.CategoryType
	Err      error
}

func (e *PersistenceFatalError) Error() string {
	return fmt.Sprintf("persisting category %s failed: %v", e.Category, e.Err)
}

func (e *PersistenceFatalError) Unwrap() error { return e.Err }

func (e *PersistenceFatalError) Retryable() bool { return false }
