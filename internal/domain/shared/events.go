package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Identity events drive cache invalidation: every
// component holding per-user state must drop it when the acting identity
// changes, so data from one scope never leaks into another's view.
const (
	// Identity events
	EventIdentityChanged EventType = "identity.changed"
	EventAccountCreated  EventType = "identity.account_created"
	EventSignedIn        EventType = "identity.signed_in"
	EventSignedOut       EventType = "identity.signed_out"

	// Progress events
	EventCourseCompletionChanged EventType = "progress.course_completion_changed"
	EventFocusSkillChanged       EventType = "progress.focus_skill_changed"
	EventCheckinLogged           EventType = "progress.checkin_logged"
	EventCheckinsCleared         EventType = "progress.checkins_cleared"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// ScopeUserID returns the user id whose state the event concerns.
	ScopeUserID() string
}

// EventHandler processes a single event. Handlers run synchronously on the
// publishing goroutine; they must not block.
type EventHandler func(Event)

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// ScopeUserID implements Event.
func (e BaseEvent) ScopeUserID() string { return e.UserID }

// NewBaseEvent creates a new base event stamped with the current time.
func NewBaseEvent(eventType EventType, userID string) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: time.Now().UTC(), UserID: userID}
}

// IdentityChangedEvent is emitted on every sign-in, sign-up, and sign-out
// transition. PreviousUserID allows subscribers to drop the old scope's state.
type IdentityChangedEvent struct {
	BaseEvent
	PreviousUserID string `json:"previous_user_id"`
	Epoch          uint64 `json:"epoch"`
}

// CourseCompletionChangedEvent is emitted when a course is checked or unchecked.
type CourseCompletionChangedEvent struct {
	BaseEvent
	CourseID  string `json:"course_id"`
	Completed bool   `json:"completed"`
}

// FocusSkillChangedEvent is emitted when the focus skill is set or cleared.
type FocusSkillChangedEvent struct {
	BaseEvent
	SkillID string `json:"skill_id"` // empty when cleared
}

// CheckinLoggedEvent is emitted when a check-in entry is added.
type CheckinLoggedEvent struct {
	BaseEvent
	Day   string `json:"day"`
	Focus string `json:"focus"`
}

// CheckinsClearedEvent is emitted when the whole check-in log is wiped.
type CheckinsClearedEvent struct {
	BaseEvent
}
