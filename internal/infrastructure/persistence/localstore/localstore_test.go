package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestCourseCompletionRoundTrip(t *testing.T) {
	p := NewProgressStore(newTestStore(t))
	ctx := context.Background()

	before, err := p.CompletionMap(ctx, "guest")
	require.NoError(t, err)
	assert.Empty(t, before)

	require.NoError(t, p.SetCourseCompletion(ctx, "guest", "color-theory", true))
	done, err := p.CourseCompletion(ctx, "guest", "color-theory")
	require.NoError(t, err)
	assert.True(t, done)

	// Unchecking removes the key, restoring the pre-set state exactly.
	require.NoError(t, p.SetCourseCompletion(ctx, "guest", "color-theory", false))
	after, err := p.CompletionMap(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCompletionIsolatedPerUser(t *testing.T) {
	p := NewProgressStore(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, p.SetCourseCompletion(ctx, "ada@example.com", "intro", true))

	guestMap, err := p.CompletionMap(ctx, "guest")
	require.NoError(t, err)
	assert.Empty(t, guestMap)

	adaMap, err := p.CompletionMap(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"intro": true}, adaMap)
}

func TestFocusSkillExclusive(t *testing.T) {
	p := NewProgressStore(newTestStore(t))
	ctx := context.Background()

	skill, err := p.FocusSkill(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, "", skill)

	require.NoError(t, p.SetFocusSkill(ctx, "guest", "sketching"))
	require.NoError(t, p.SetFocusSkill(ctx, "guest", "writing"))

	skill, err = p.FocusSkill(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, "writing", skill)

	require.NoError(t, p.SetFocusSkill(ctx, "guest", ""))
	skill, err = p.FocusSkill(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, "", skill)
}

func TestCheckinsAppendSortAndClear(t *testing.T) {
	p := NewProgressStore(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, p.AddCheckin(ctx, "guest", progress.Checkin{
		Day: "2024-06-13", Focus: progress.FocusPhase1, Notes: "first",
	}))
	require.NoError(t, p.AddCheckin(ctx, "guest", progress.Checkin{
		Day: "2024-06-15", Focus: progress.FocusSkills, Notes: "second",
	}))

	entries, err := p.ListCheckins(ctx, "guest")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-06-15", entries[0].Day)
	assert.Equal(t, "2024-06-13", entries[1].Day)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())

	require.NoError(t, p.ClearCheckins(ctx, "guest"))
	entries, err = p.ListCheckins(ctx, "guest")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := New(dir, nil)
	require.NoError(t, err)
	p1 := NewProgressStore(s1)
	require.NoError(t, p1.SetCourseCompletion(ctx, "guest", "anatomy", true))
	require.NoError(t, p1.SetFocusSkill(ctx, "guest", "sketching"))

	s2, err := New(dir, nil)
	require.NoError(t, err)
	p2 := NewProgressStore(s2)

	done, err := p2.CourseCompletion(ctx, "guest", "anatomy")
	require.NoError(t, err)
	assert.True(t, done)

	skill, err := p2.FocusSkill(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, "sketching", skill)
}

func TestCorruptDocumentTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "courses__user_guest.json"), []byte("{not json"), 0o644))

	m, err := NewProgressStore(s).CompletionMap(context.Background(), "guest")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestPartiallyDecodableDocumentDiscardedWhole(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	require.NoError(t, err)
	p := NewProgressStore(s)
	ctx := context.Background()

	// The first element decodes cleanly, the second fails mid-array. The
	// decoded prefix must not leak out, or the next write would persist it.
	body := `[{"id":"c1","date":"2024-06-14","focus":"skills","notes":"ok","created_at":"2024-06-14T10:00:00Z"},{"id":42}]`
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "checkins__user_guest.json"), []byte(body), 0o644))

	entries, err := p.ListCheckins(ctx, "guest")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, p.AddCheckin(ctx, "guest", progress.Checkin{
		Day: "2024-06-15", Focus: progress.FocusSkills, Notes: "fresh start",
	}))
	entries, err = p.ListCheckins(ctx, "guest")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-06-15", entries[0].Day)
}

func TestAccountsCreateFindAndPointer(t *testing.T) {
	a := NewAccountStore(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, learner.Account{
		Email:       "Ada@Example.com",
		Password:    "hunter2",
		DisplayName: "Ada",
	}))

	// Lookup is case-insensitive.
	acct, err := a.FindByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", acct.Email.String())
	assert.Equal(t, "hunter2", acct.Password)
	assert.NotEmpty(t, acct.ID)

	// Duplicate email is rejected regardless of case.
	err = a.Create(ctx, learner.Account{Email: "ADA@example.com", Password: "other"})
	assert.ErrorIs(t, err, shared.ErrAccountExists)

	// Pointer lifecycle.
	current, err := a.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared.Email(""), current)

	require.NoError(t, a.SetCurrentEmail(ctx, "ada@example.com"))
	current, err = a.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared.Email("ada@example.com"), current)

	require.NoError(t, a.SetCurrentEmail(ctx, ""))
	current, err = a.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared.Email(""), current)
}

func TestDanglingPointerResolvesToGuest(t *testing.T) {
	a := NewAccountStore(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, a.SetCurrentEmail(ctx, "ghost@example.com"))
	current, err := a.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared.Email(""), current)
}

func TestFindByEmailNotFound(t *testing.T) {
	a := NewAccountStore(newTestStore(t))
	_, err := a.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
