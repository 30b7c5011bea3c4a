package core

import (
	"errors"
	"fmt"
)

// ErrMapperNotFound is returned by mapper registry lookups for an entity
// type with no registered mapper. Fatal to the calling operation.
var ErrMapperNotFound = errors.New("no data mapper registered")

// ErrInvalidLink is returned when an aggregate-root link registration is
// malformed (nil parent, child, or propagation function, or a self-link).
// Rejected at registration time.
var ErrInvalidLink = errors.New("invalid aggregate link")

// Commit phases reported by CommitError.
const (
	PhasePreCommit = "pre-commit"
	PhaseBegin     = "begin"
	PhaseInsert    = "insert"
	PhaseUpdate    = "update"
	PhaseDelete    = "delete"
	PhaseCommit    = "commit"
)

// CommitError wraps any failure raised while committing a unit of work. The
// transaction has been rolled back (or never opened, for the pre-commit and
// begin phases), generated identifiers have been reset, and the schedule
// sets are left populated so the caller can inspect or retry.
type CommitError struct {
	// Phase names the commit phase that failed.
	Phase string

	// Err is the original cause.
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed during %s phase: %v", e.Phase, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
