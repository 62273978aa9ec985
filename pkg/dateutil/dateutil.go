// Package dateutil provides calendar-day arithmetic for progress tracking.
// A "day" is a YYYY-MM-DD string interpreted at local midnight; all streak
// and check-in logic works on these strings rather than time.Time values so
// that a check-in logged at 23:59 and one logged at 00:01 land on different
// days without any timezone gymnastics at the call sites.
// No external dependencies - uses only standard library.
package dateutil

import (
	"time"
)

// Common date formats.
const (
	// FormatDay is the canonical calendar-day format (YYYY-MM-DD).
	FormatDay = "2006-01-02"
	// FormatDisplay is the human-readable display format (Jan 2, 2006).
	FormatDisplay = "Jan 2, 2006"
)

// ParseDay parses a calendar-day string at local midnight.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(FormatDay, day, time.Local)
}

// IsDay reports whether s is a valid calendar-day string.
func IsDay(s string) bool {
	_, err := ParseDay(s)
	return err == nil
}

// Today returns the current calendar day in the given location.
// A nil location means time.Local.
func Today(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format(FormatDay)
}

// ShiftDate returns the calendar day deltaDays away from day, rolling over
// month and year boundaries (ShiftDate("2024-01-01", -1) == "2023-12-31").
// Invalid input is returned unchanged.
func ShiftDate(day string, deltaDays int) string {
	t, err := ParseDay(day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, deltaDays).Format(FormatDay)
}

// FormatDate formats a calendar-day string for display ("Jan 2, 2006").
// Invalid input is returned unchanged rather than erroring so callers can
// always render something.
func FormatDate(day string) string {
	t, err := ParseDay(day)
	if err != nil {
		return day
	}
	return t.Format(FormatDisplay)
}

// DayOf formats a time as a calendar-day string.
func DayOf(t time.Time) string {
	return t.Format(FormatDay)
}

// DaysBetween returns the absolute number of calendar days between two days.
// Invalid input yields 0.
func DaysBetween(day1, day2 string) int {
	// Parsed in UTC so DST transitions cannot skew the 24h division.
	t1, err1 := time.Parse(FormatDay, day1)
	t2, err2 := time.Parse(FormatDay, day2)
	if err1 != nil || err2 != nil {
		return 0
	}
	days := int(t2.Sub(t1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
