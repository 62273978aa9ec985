package localstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
)

// ProgressStore implements progress.Store on the file store. The
// completion map is sparse: unchecking a course removes its key so the
// document only ever holds courses that are actually complete.
type ProgressStore struct {
	store *Store
}

// NewProgressStore wraps the file store with the progress contract.
func NewProgressStore(store *Store) *ProgressStore {
	return &ProgressStore{store: store}
}

type checkinDoc struct {
	ID        string    `json:"id"`
	Day       string    `json:"date"`
	Focus     string    `json:"focus"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionMap returns the sparse completion map for the user.
func (p *ProgressStore) CompletionMap(_ context.Context, userID string) (map[string]bool, error) {
	out := make(map[string]bool)
	err := p.store.withLock(func() error {
		_, err := p.store.read(userKey(keyCourses, userID), &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CourseCompletion returns the completion flag for one course.
func (p *ProgressStore) CourseCompletion(ctx context.Context, userID, courseID string) (bool, error) {
	m, err := p.CompletionMap(ctx, userID)
	if err != nil {
		return false, err
	}
	return m[courseID], nil
}

// SetCourseCompletion marks or unmarks a course. Unchecking removes the
// key entirely so the round trip restores the pre-set state.
func (p *ProgressStore) SetCourseCompletion(_ context.Context, userID, courseID string, completed bool) error {
	key := userKey(keyCourses, userID)
	return p.store.withLock(func() error {
		m := make(map[string]bool)
		if _, err := p.store.read(key, &m); err != nil {
			return err
		}
		if completed {
			m[courseID] = true
		} else {
			delete(m, courseID)
		}
		return p.store.write(key, m)
	})
}

// FocusSkill returns the active skill id, "" when none is set.
func (p *ProgressStore) FocusSkill(_ context.Context, userID string) (string, error) {
	var skill string
	err := p.store.withLock(func() error {
		_, err := p.store.read(userKey(keyFocusSkill, userID), &skill)
		return err
	})
	if err != nil {
		return "", err
	}
	return skill, nil
}

// SetFocusSkill replaces the active skill; empty removes the document,
// the "never set" representation.
func (p *ProgressStore) SetFocusSkill(_ context.Context, userID, skillID string) error {
	key := userKey(keyFocusSkill, userID)
	return p.store.withLock(func() error {
		if skillID == "" {
			return p.store.remove(key)
		}
		return p.store.write(key, skillID)
	})
}

// ListCheckins returns all entries ordered descending by day.
func (p *ProgressStore) ListCheckins(_ context.Context, userID string) ([]progress.Checkin, error) {
	var docs []checkinDoc
	err := p.store.withLock(func() error {
		_, err := p.store.read(userKey(keyCheckins, userID), &docs)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]progress.Checkin, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, progress.Checkin{
			ID:        d.ID,
			Day:       d.Day,
			Focus:     progress.FocusArea(d.Focus),
			Notes:     d.Notes,
			CreatedAt: d.CreatedAt,
		})
	}
	progress.SortCheckins(entries)
	return entries, nil
}

// AddCheckin appends an entry to the log.
func (p *ProgressStore) AddCheckin(_ context.Context, userID string, entry progress.Checkin) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	key := userKey(keyCheckins, userID)
	return p.store.withLock(func() error {
		var docs []checkinDoc
		if _, err := p.store.read(key, &docs); err != nil {
			return err
		}
		docs = append(docs, checkinDoc{
			ID:        entry.ID,
			Day:       entry.Day,
			Focus:     string(entry.Focus),
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
		return p.store.write(key, docs)
	})
}

// ClearCheckins removes the whole log document.
func (p *ProgressStore) ClearCheckins(_ context.Context, userID string) error {
	key := userKey(keyCheckins, userID)
	return p.store.withLock(func() error {
		return p.store.remove(key)
	})
}
