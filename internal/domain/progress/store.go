package progress

import (
	"context"
)

// Store defines persistence for the three progress facts, always scoped
// by user id. Two implementations exist: the on-device file store and the
// remote account-backed store. The domain layer has no knowledge of which
// one is wired in.
//
// Failure contract: reads return shared.ErrStoreUnavailable when the
// backend cannot be reached, and callers degrade to an empty result set;
// writes either fully succeed or fail with no partial effect.
type Store interface {
	// Course completion operations

	// CompletionMap returns the sparse completion map for the user.
	// Absent keys mean "not complete".
	CompletionMap(ctx context.Context, userID string) (map[string]bool, error)

	// CourseCompletion returns the completion flag for one course.
	CourseCompletion(ctx context.Context, userID, courseID string) (bool, error)

	// SetCourseCompletion marks a course complete or not. Unchecking
	// restores the state as if the course was never checked.
	SetCourseCompletion(ctx context.Context, userID, courseID string, completed bool) error

	// Focus skill operations

	// FocusSkill returns the active skill id, "" when none is set.
	FocusSkill(ctx context.Context, userID string) (string, error)

	// SetFocusSkill replaces the active skill; empty clears it. The skill
	// is an exclusive choice, never a set.
	SetFocusSkill(ctx context.Context, userID, skillID string) error

	// Check-in operations

	// ListCheckins returns all entries ordered descending by day.
	ListCheckins(ctx context.Context, userID string) ([]Checkin, error)

	// AddCheckin appends an entry. The entry must already be validated.
	AddCheckin(ctx context.Context, userID string, entry Checkin) error

	// ClearCheckins irreversibly removes every entry for the user.
	// Confirmation is the caller's concern.
	ClearCheckins(ctx context.Context, userID string) error
}
