package progress

import (
	"sort"

	"github.com/studypath-hub/studypath-hub/pkg/dateutil"
)

// ComputeStreak returns the count of consecutive calendar days with at
// least one check-in, walking backward from today.
//
// The walk keeps an expected day, starting at today. A date matching the
// expected day, or the day before it, counts and moves the expectation
// back a single day; the first older date that matches neither ends the
// walk. A streak ending yesterday therefore counts in full with no extra
// day credited for today, and a lone missing day is bridged while a hole
// of two or more days breaks the run.
//
// Dates after the expected day (future-dated entries) are skipped.
// Duplicates are tolerated; each day counts once.
func ComputeStreak(dates []string, today string) int {
	if len(dates) == 0 {
		return 0
	}

	unique := make(map[string]struct{}, len(dates))
	ordered := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := unique[d]; ok {
			continue
		}
		unique[d] = struct{}{}
		ordered = append(ordered, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	streak := 0
	expected := today

	for _, d := range ordered {
		switch {
		case d > expected:
			continue
		case d == expected:
			streak++
			expected = dateutil.ShiftDate(expected, -1)
		case d == dateutil.ShiftDate(expected, -1):
			streak++
			expected = dateutil.ShiftDate(expected, -1)
		default:
			return streak
		}
	}

	return streak
}
