// Package command implements the write side of the application layer:
// marking courses complete, choosing the focus skill, and logging or
// clearing check-ins. Every command is scoped to the acting user id and
// publishes a progress event on success.
package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studypath-hub/studypath-hub/config"
	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/internal/infrastructure/messaging"
	"github.com/studypath-hub/studypath-hub/pkg/dateutil"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

const domain = "progress"

// CacheInvalidator drops cached per-user views after a write. A nil
// invalidator is valid; the local backend runs without a cache.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// ProgressCommands executes the progress write operations.
type ProgressCommands struct {
	store   progress.Store
	catalog config.CatalogConfig
	bus     messaging.EventBus
	cache   CacheInvalidator
	loc     *time.Location
	log     *logger.Logger
}

// NewProgressCommands creates the command service.
func NewProgressCommands(
	store progress.Store,
	catalog config.CatalogConfig,
	bus messaging.EventBus,
	cache CacheInvalidator,
	loc *time.Location,
	log *logger.Logger,
) *ProgressCommands {
	if loc == nil {
		loc = time.Local
	}
	return &ProgressCommands{
		store:   store,
		catalog: catalog,
		bus:     bus,
		cache:   cache,
		loc:     loc,
		log:     log.With(logger.Component("progress_commands")),
	}
}

// SetCourseCompletion marks a course complete or not for the user.
// Unchecking removes the mark entirely, as if it was never set.
func (c *ProgressCommands) SetCourseCompletion(ctx context.Context, userID, courseID string, completed bool) error {
	const op = "SetCourseCompletion"

	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return shared.NewDomainError(domain, op, shared.ErrEmptyValue, "course id is required")
	}
	if !c.catalog.HasCourse(courseID) {
		return shared.NewDomainError(domain, op, shared.ErrInvalidInput, "unknown course id")
	}

	if err := c.store.SetCourseCompletion(ctx, userID, courseID, completed); err != nil {
		return err
	}

	c.log.Info("course completion changed", logger.Operation(op),
		logger.UserID(userID), logger.CourseID(courseID), logger.Bool("completed", completed))
	c.afterWrite(ctx, userID, shared.CourseCompletionChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCourseCompletionChanged, userID),
		CourseID:  courseID,
		Completed: completed,
	})
	return nil
}

// SetFocusSkill makes the skill the user's single focus. Choosing the
// skill that is already active clears the choice instead, so the same
// action both selects and deselects. Passing "" clears unconditionally.
func (c *ProgressCommands) SetFocusSkill(ctx context.Context, userID, skillID string) (string, error) {
	const op = "SetFocusSkill"

	skillID = strings.TrimSpace(skillID)
	if skillID != "" && !c.catalog.HasSkill(skillID) {
		return "", shared.NewDomainError(domain, op, shared.ErrInvalidInput, "unknown skill id")
	}

	if skillID != "" {
		current, err := c.store.FocusSkill(ctx, userID)
		if err != nil && !shared.IsUnavailable(err) {
			return "", err
		}
		if err == nil && current == skillID {
			skillID = ""
		}
	}

	if err := c.store.SetFocusSkill(ctx, userID, skillID); err != nil {
		return "", err
	}

	c.log.Info("focus skill changed", logger.Operation(op),
		logger.UserID(userID), logger.SkillID(skillID))
	c.afterWrite(ctx, userID, shared.FocusSkillChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventFocusSkillChanged, userID),
		SkillID:   skillID,
	})
	return skillID, nil
}

// AddCheckinInput carries the check-in form fields. A blank day means
// "today" in the configured timezone.
type AddCheckinInput struct {
	Day   string
	Focus string
	Notes string
}

// AddCheckin validates and appends a check-in entry.
func (c *ProgressCommands) AddCheckin(ctx context.Context, userID string, in AddCheckinInput) (progress.Checkin, error) {
	var zero progress.Checkin

	now := time.Now()
	day := strings.TrimSpace(in.Day)
	if day == "" {
		day = dateutil.DayOf(now.In(c.loc))
	}

	entry := progress.Checkin{
		ID:        uuid.New().String(),
		Day:       day,
		Focus:     progress.FocusArea(strings.TrimSpace(in.Focus)),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: now.UTC(),
	}
	if err := entry.Validate(); err != nil {
		return zero, err
	}

	if err := c.store.AddCheckin(ctx, userID, entry); err != nil {
		return zero, err
	}

	c.log.Info("check-in logged",
		logger.UserID(userID), logger.Day(entry.Day), logger.String("focus", string(entry.Focus)))
	c.afterWrite(ctx, userID, shared.CheckinLoggedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCheckinLogged, userID),
		Day:       entry.Day,
		Focus:     string(entry.Focus),
	})
	return entry, nil
}

// ClearCheckins irreversibly wipes the user's check-in log. The caller is
// expected to have confirmed the action with the user first.
func (c *ProgressCommands) ClearCheckins(ctx context.Context, userID string) error {
	if err := c.store.ClearCheckins(ctx, userID); err != nil {
		return err
	}

	c.log.Info("check-in log cleared", logger.UserID(userID))
	c.afterWrite(ctx, userID, shared.CheckinsClearedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventCheckinsCleared, userID),
	})
	return nil
}

func (c *ProgressCommands) afterWrite(ctx context.Context, userID string, event shared.Event) {
	if c.cache != nil {
		c.cache.Invalidate(ctx, userID)
	}
	if c.bus != nil {
		c.bus.Publish(event)
	}
}
