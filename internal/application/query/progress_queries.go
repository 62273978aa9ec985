// Package query implements the read side of the application layer. Reads
// never fail the page: when the backend is unreachable they degrade to an
// empty result, and results fetched for an identity that is no longer
// acting are discarded instead of rendered.
package query

import (
	"context"
	"time"

	"github.com/studypath-hub/studypath-hub/config"
	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/dateutil"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// DefaultMaxVisibleCheckins is how many check-in entries the log view
// shows before collapsing the rest behind a count.
const DefaultMaxVisibleCheckins = 6

// IdentityGuard exposes the acting identity and its epoch. Queries resolve
// the scope at the start and verify it is unchanged before returning.
type IdentityGuard interface {
	Current() (learner.Identity, uint64)
	CheckEpoch(epoch uint64) error
}

// OverviewCache is the optional read-through cache for the overview.
type OverviewCache interface {
	Get(ctx context.Context, userID string, dest any) bool
	Set(ctx context.Context, userID string, payload any)
}

// Overview is the aggregate course-completion state.
type Overview struct {
	Completions map[string]bool `json:"completions"`
	Completed   int             `json:"completed"`
	Total       int             `json:"total"`
	Percent     int             `json:"percent"` // 0-100, floored
}

// CheckinView is one check-in entry prepared for display.
type CheckinView struct {
	ID         string    `json:"id"`
	Day        string    `json:"day"`
	DisplayDay string    `json:"display_day"`
	Focus      string    `json:"focus"`
	FocusLabel string    `json:"focus_label"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// StreakView is the rendered streak summary.
type StreakView struct {
	StreakDays     int    `json:"streak_days"`
	LastCheckinDay string `json:"last_checkin_day,omitempty"`
	LastCheckin    string `json:"last_checkin,omitempty"` // display form
	TotalSessions  int    `json:"total_sessions"`
	Caption        string `json:"caption"`
}

// CheckinLog is the check-in page: visible entries, the collapsed
// remainder, and the streak summary.
type CheckinLog struct {
	Entries []CheckinView `json:"entries"`
	Hidden  int           `json:"hidden"`
	Streak  StreakView    `json:"streak"`
}

// ProgressQueries executes the progress read operations.
type ProgressQueries struct {
	store      progress.Store
	catalog    config.CatalogConfig
	guard      IdentityGuard
	cache      OverviewCache
	loc        *time.Location
	maxVisible int
	log        *logger.Logger
}

// NewProgressQueries creates the query service. A nil cache disables the
// overview cache; zero maxVisible uses the default.
func NewProgressQueries(
	store progress.Store,
	catalog config.CatalogConfig,
	guard IdentityGuard,
	cache OverviewCache,
	loc *time.Location,
	maxVisible int,
	log *logger.Logger,
) *ProgressQueries {
	if loc == nil {
		loc = time.Local
	}
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisibleCheckins
	}
	return &ProgressQueries{
		store:      store,
		catalog:    catalog,
		guard:      guard,
		cache:      cache,
		loc:        loc,
		maxVisible: maxVisible,
		log:        log.With(logger.Component("progress_queries")),
	}
}

// GetOverview returns the completion map and overall percent for the
// acting user. The percent is floored and computed over the configured
// course catalog; an empty catalog reports zero.
func (q *ProgressQueries) GetOverview(ctx context.Context) (Overview, error) {
	identity, epoch := q.guard.Current()

	if q.cache != nil {
		var cached Overview
		if q.cache.Get(ctx, identity.UserID, &cached) {
			if err := q.guard.CheckEpoch(epoch); err != nil {
				return Overview{}, err
			}
			return cached, nil
		}
	}

	completions, err := q.store.CompletionMap(ctx, identity.UserID)
	if err != nil {
		if shared.IsUnavailable(err) {
			q.log.Warn("overview read degraded to empty", logger.UserID(identity.UserID), logger.Err(err))
			completions = map[string]bool{}
		} else {
			return Overview{}, err
		}
	}
	if completions == nil {
		completions = map[string]bool{}
	}

	overview := buildOverview(completions, q.catalog)

	// Results fetched for a previous identity are discarded, never shown.
	if err := q.guard.CheckEpoch(epoch); err != nil {
		return Overview{}, err
	}

	if q.cache != nil {
		q.cache.Set(ctx, identity.UserID, overview)
	}
	return overview, nil
}

func buildOverview(completions map[string]bool, catalog config.CatalogConfig) Overview {
	completed := 0
	for id, done := range completions {
		if done && catalog.HasCourse(id) {
			completed++
		}
	}

	total := len(catalog.CourseIDs)
	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}

	return Overview{
		Completions: completions,
		Completed:   completed,
		Total:       total,
		Percent:     percent,
	}
}

// GetFocusSkill returns the acting user's focus skill, "" when none.
func (q *ProgressQueries) GetFocusSkill(ctx context.Context) (string, error) {
	identity, epoch := q.guard.Current()

	skill, err := q.store.FocusSkill(ctx, identity.UserID)
	if err != nil {
		if shared.IsUnavailable(err) {
			q.log.Warn("focus skill read degraded to empty", logger.UserID(identity.UserID), logger.Err(err))
			skill = ""
		} else {
			return "", err
		}
	}

	if err := q.guard.CheckEpoch(epoch); err != nil {
		return "", err
	}
	return skill, nil
}

// GetCheckinLog returns the check-in page for the acting user: up to
// maxVisible entries newest first, the count of collapsed older entries,
// and the streak summary computed as of today.
func (q *ProgressQueries) GetCheckinLog(ctx context.Context) (CheckinLog, error) {
	identity, epoch := q.guard.Current()

	entries, err := q.store.ListCheckins(ctx, identity.UserID)
	if err != nil {
		if shared.IsUnavailable(err) {
			q.log.Warn("check-in read degraded to empty", logger.UserID(identity.UserID), logger.Err(err))
			entries = nil
		} else {
			return CheckinLog{}, err
		}
	}

	progress.SortCheckins(entries)
	today := dateutil.Today(q.loc)
	summary := progress.Summarize(entries, today)

	visible := entries
	hidden := 0
	if len(entries) > q.maxVisible {
		visible = entries[:q.maxVisible]
		hidden = len(entries) - q.maxVisible
	}

	views := make([]CheckinView, 0, len(visible))
	for _, e := range visible {
		views = append(views, CheckinView{
			ID:         e.ID,
			Day:        e.Day,
			DisplayDay: dateutil.FormatDate(e.Day),
			Focus:      string(e.Focus),
			FocusLabel: e.Focus.Label(),
			Notes:      e.Notes,
			CreatedAt:  e.CreatedAt,
		})
	}

	page := CheckinLog{
		Entries: views,
		Hidden:  hidden,
		Streak: StreakView{
			StreakDays:     summary.StreakDays,
			LastCheckinDay: summary.LastCheckinDay,
			TotalSessions:  summary.TotalSessions,
			Caption:        summary.Caption(),
		},
	}
	if summary.LastCheckinDay != "" {
		page.Streak.LastCheckin = dateutil.FormatDate(summary.LastCheckinDay)
	} else {
		page.Streak.LastCheckin = "—"
	}

	if err := q.guard.CheckEpoch(epoch); err != nil {
		return CheckinLog{}, err
	}
	return page, nil
}
