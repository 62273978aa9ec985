// Package progress contains domain entities and business logic for the
// three tracked facts: per-course completion, the chosen focus skill, and
// the daily check-in log with its streak.
// This is a pure domain layer with zero external dependencies.
package progress

import (
	"sort"
	"time"

	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/dateutil"
)

// FocusArea is what a check-in session was spent on.
type FocusArea string

const (
	FocusPhase1 FocusArea = "phase1"
	FocusPhase2 FocusArea = "phase2"
	FocusPhase3 FocusArea = "phase3"
	FocusSkills FocusArea = "skills"
	FocusOther  FocusArea = "other"
)

// IsValid checks whether the focus area is one of the known values.
func (f FocusArea) IsValid() bool {
	switch f {
	case FocusPhase1, FocusPhase2, FocusPhase3, FocusSkills, FocusOther:
		return true
	}
	return false
}

// Label returns the display label for the focus area; unknown values
// render empty.
func (f FocusArea) Label() string {
	switch f {
	case FocusPhase1:
		return "Phase 1 · Foundations"
	case FocusPhase2:
		return "Phase 2 · Storytelling & game design"
	case FocusPhase3:
		return "Phase 3 · Technical craft"
	case FocusSkills:
		return "Skill practice"
	case FocusOther:
		return "Other"
	default:
		return ""
	}
}

// Checkin is one logged study session. Entries are append-only; a day may
// hold several entries but contributes to the streak once.
type Checkin struct {
	ID        string
	Day       string // calendar day, YYYY-MM-DD
	Focus     FocusArea
	Notes     string
	CreatedAt time.Time
}

// Validate checks the check-in invariants: day, focus, and notes are all
// required, and the day must be a real calendar date.
func (c Checkin) Validate() error {
	if c.Day == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "date is required")
	}
	if !dateutil.IsDay(c.Day) {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidFormat, "date must be YYYY-MM-DD")
	}
	if c.Focus == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "focus is required")
	}
	if !c.Focus.IsValid() {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidInput, "unknown focus area")
	}
	if c.Notes == "" {
		return shared.NewDomainError("progress", "Validate", shared.ErrEmptyValue, "notes are required")
	}
	return nil
}

// SortCheckins orders entries descending by day, newest first, with
// CreatedAt as the same-day tiebreaker. This is the display order.
func SortCheckins(entries []Checkin) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day > entries[j].Day
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

// UniqueDays extracts the distinct calendar days from a check-in list,
// the input for streak computation.
func UniqueDays(entries []Checkin) []string {
	seen := make(map[string]struct{}, len(entries))
	days := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Day]; ok {
			continue
		}
		seen[e.Day] = struct{}{}
		days = append(days, e.Day)
	}
	return days
}

// Summary is the aggregate state of the check-in log.
type Summary struct {
	StreakDays     int
	LastCheckinDay string // latest distinct day, "" when the log is empty
	TotalSessions  int    // every entry counts, including same-day repeats
}

// Summarize computes the streak summary for a check-in list as of today.
func Summarize(entries []Checkin, today string) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	days := UniqueDays(entries)
	latest := days[0]
	for _, d := range days[1:] {
		if d > latest {
			latest = d
		}
	}

	return Summary{
		StreakDays:     ComputeStreak(days, today),
		LastCheckinDay: latest,
		TotalSessions:  len(entries),
	}
}

// Caption returns the motivational caption for a summary.
func (s Summary) Caption() string {
	if s.TotalSessions == 0 {
		return "Start logging check-ins to build momentum."
	}
	if s.StreakDays >= 3 {
		return "Nice streak—keep showing up."
	}
	return "You're building a new habit."
}
