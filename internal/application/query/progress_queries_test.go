package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypath-hub/studypath-hub/config"
	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/dateutil"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// fakeGuard pins the acting identity for a test and lets the test flip
// the epoch mid-read.
type fakeGuard struct {
	identity learner.Identity
	epoch    uint64
}

func (g *fakeGuard) Current() (learner.Identity, uint64) { return g.identity, g.epoch }

func (g *fakeGuard) CheckEpoch(epoch uint64) error {
	if epoch != g.epoch {
		return shared.NewDomainError("learner", "CheckEpoch", shared.ErrStaleIdentity, "stale")
	}
	return nil
}

// fakeStore is an in-memory progress.Store whose reads can be forced to
// fail with the unavailable error.
type fakeStore struct {
	completions map[string]bool
	skill       string
	checkins    []progress.Checkin
	unavailable bool

	onRead func() // called before each read, for mid-read epoch flips
}

func (f *fakeStore) readHook() error {
	if f.onRead != nil {
		f.onRead()
	}
	if f.unavailable {
		return shared.NewDomainError("progress", "read", shared.ErrStoreUnavailable, "down")
	}
	return nil
}

func (f *fakeStore) CompletionMap(context.Context, string) (map[string]bool, error) {
	if err := f.readHook(); err != nil {
		return nil, err
	}
	return f.completions, nil
}

func (f *fakeStore) CourseCompletion(_ context.Context, _, courseID string) (bool, error) {
	if err := f.readHook(); err != nil {
		return false, err
	}
	return f.completions[courseID], nil
}

func (f *fakeStore) SetCourseCompletion(context.Context, string, string, bool) error { return nil }

func (f *fakeStore) FocusSkill(context.Context, string) (string, error) {
	if err := f.readHook(); err != nil {
		return "", err
	}
	return f.skill, nil
}

func (f *fakeStore) SetFocusSkill(context.Context, string, string) error { return nil }

func (f *fakeStore) ListCheckins(context.Context, string) ([]progress.Checkin, error) {
	if err := f.readHook(); err != nil {
		return nil, err
	}
	return append([]progress.Checkin(nil), f.checkins...), nil
}

func (f *fakeStore) AddCheckin(context.Context, string, progress.Checkin) error { return nil }
func (f *fakeStore) ClearCheckins(context.Context, string) error                { return nil }

type fakeCache struct {
	entries map[string]Overview
}

func (f *fakeCache) Get(_ context.Context, userID string, dest any) bool {
	o, ok := f.entries[userID]
	if !ok {
		return false
	}
	*dest.(*Overview) = o
	return true
}

func (f *fakeCache) Set(_ context.Context, userID string, payload any) {
	if f.entries == nil {
		f.entries = map[string]Overview{}
	}
	f.entries[userID] = payload.(Overview)
}

func newQueries(store *fakeStore, catalog config.CatalogConfig, guard IdentityGuard, cache OverviewCache) *ProgressQueries {
	return NewProgressQueries(store, catalog, guard, cache, time.UTC, 0, logger.NewNop())
}

func guestGuard() *fakeGuard {
	return &fakeGuard{identity: learner.Guest(), epoch: 1}
}

func TestGetOverviewPercent(t *testing.T) {
	catalog := config.CatalogConfig{CourseIDs: []string{"a", "b", "c", "d", "e"}}
	store := &fakeStore{completions: map[string]bool{"a": true, "b": true}}
	q := newQueries(store, catalog, guestGuard(), nil)

	got, err := q.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, got.Completed)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 40, got.Percent)
}

func TestGetOverviewPercentIsFloored(t *testing.T) {
	catalog := config.CatalogConfig{CourseIDs: []string{"a", "b", "c"}}
	store := &fakeStore{completions: map[string]bool{"a": true}}
	q := newQueries(store, catalog, guestGuard(), nil)

	got, err := q.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33, got.Percent)
}

func TestGetOverviewIgnoresCoursesOutsideCatalog(t *testing.T) {
	catalog := config.CatalogConfig{CourseIDs: []string{"a", "b"}}
	store := &fakeStore{completions: map[string]bool{"a": true, "stray": true}}
	q := newQueries(store, catalog, guestGuard(), nil)

	got, err := q.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Completed)
	assert.Equal(t, 50, got.Percent)
}

func TestGetOverviewEmptyCatalogReportsZero(t *testing.T) {
	store := &fakeStore{completions: map[string]bool{"a": true}}
	q := newQueries(store, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, 0, got.Percent)
}

func TestGetOverviewDegradesWhenStoreUnavailable(t *testing.T) {
	store := &fakeStore{unavailable: true}
	q := newQueries(store, config.CatalogConfig{CourseIDs: []string{"a"}}, guestGuard(), nil)

	got, err := q.GetOverview(context.Background())
	require.NoError(t, err, "unreachable backend must not error the read")
	assert.Empty(t, got.Completions)
	assert.Equal(t, 0, got.Percent)
}

func TestGetOverviewUsesCache(t *testing.T) {
	catalog := config.CatalogConfig{CourseIDs: []string{"a", "b"}}
	store := &fakeStore{completions: map[string]bool{"a": true}}
	cache := &fakeCache{}
	q := newQueries(store, catalog, guestGuard(), cache)
	ctx := context.Background()

	first, err := q.GetOverview(ctx)
	require.NoError(t, err)

	// A store change without invalidation is not seen until the cache drops.
	store.completions["b"] = true
	second, err := q.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	delete(cache.entries, shared.GuestUserID)
	third, err := q.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Completed)
}

func TestGetOverviewDiscardsStaleIdentity(t *testing.T) {
	guard := guestGuard()
	store := &fakeStore{completions: map[string]bool{"a": true}}
	store.onRead = func() { guard.epoch++ } // identity flips mid-fetch
	q := newQueries(store, config.CatalogConfig{CourseIDs: []string{"a"}}, guard, nil)

	_, err := q.GetOverview(context.Background())
	assert.ErrorIs(t, err, shared.ErrStaleIdentity)
}

func TestGetFocusSkill(t *testing.T) {
	store := &fakeStore{skill: "writing"}
	q := newQueries(store, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetFocusSkill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "writing", got)

	store.unavailable = true
	got, err = q.GetFocusSkill(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func checkinOn(day string, created time.Time) progress.Checkin {
	return progress.Checkin{ID: "id-" + day, Day: day, Focus: progress.FocusPhase1, Notes: "n", CreatedAt: created}
}

func TestGetCheckinLogCapsVisibleEntries(t *testing.T) {
	today := dateutil.Today(time.UTC)
	base := time.Now().UTC()
	store := &fakeStore{}
	for i := 0; i < 9; i++ {
		store.checkins = append(store.checkins, checkinOn(dateutil.ShiftDate(today, -i), base.Add(-time.Duration(i)*time.Hour)))
	}
	q := newQueries(store, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetCheckinLog(context.Background())
	require.NoError(t, err)

	assert.Len(t, got.Entries, DefaultMaxVisibleCheckins)
	assert.Equal(t, 3, got.Hidden)
	assert.Equal(t, today, got.Entries[0].Day, "newest entry first")
	assert.Equal(t, 9, got.Streak.TotalSessions)
	assert.Equal(t, 9, got.Streak.StreakDays, "streak counts hidden entries too")
}

func TestGetCheckinLogRendersDisplayFields(t *testing.T) {
	store := &fakeStore{checkins: []progress.Checkin{
		{ID: "1", Day: "2024-06-15", Focus: progress.FocusPhase2, Notes: "plot outline", CreatedAt: time.Now()},
	}}
	q := newQueries(store, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetCheckinLog(context.Background())
	require.NoError(t, err)

	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Jun 15, 2024", got.Entries[0].DisplayDay)
	assert.Equal(t, "Phase 2 · Storytelling & game design", got.Entries[0].FocusLabel)
	assert.Equal(t, "2024-06-15", got.Streak.LastCheckinDay)
	assert.Equal(t, "Jun 15, 2024", got.Streak.LastCheckin)
}

func TestGetCheckinLogEmpty(t *testing.T) {
	q := newQueries(&fakeStore{}, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetCheckinLog(context.Background())
	require.NoError(t, err)

	assert.Empty(t, got.Entries)
	assert.Equal(t, 0, got.Hidden)
	assert.Equal(t, 0, got.Streak.StreakDays)
	assert.Equal(t, "—", got.Streak.LastCheckin)
	assert.Equal(t, "Start logging check-ins to build momentum.", got.Streak.Caption)
}

func TestGetCheckinLogCaptions(t *testing.T) {
	today := dateutil.Today(time.UTC)
	store := &fakeStore{checkins: []progress.Checkin{checkinOn(today, time.Now())}}
	q := newQueries(store, config.CatalogConfig{}, guestGuard(), nil)

	got, err := q.GetCheckinLog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You're building a new habit.", got.Streak.Caption)

	store.checkins = append(store.checkins,
		checkinOn(dateutil.ShiftDate(today, -1), time.Now()),
		checkinOn(dateutil.ShiftDate(today, -2), time.Now()))
	got, err = q.GetCheckinLog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nice streak—keep showing up.", got.Streak.Caption)
}
