package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/studypath-hub/studypath-hub/internal/domain/progress"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
)

// ProgressRepository implements progress.Store against the remote tables.
// Unlike the sparse on-device map, course completion is an explicit
// boolean row per (user, course); the upsert's last write wins.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

func readErr(op string, err error) error {
	return shared.WrapError("progress", op, shared.ErrStoreUnavailable, "remote read failed", err)
}

func writeErr(op string, err error) error {
	return shared.WrapError("progress", op, shared.ErrWriteFailed, "remote write failed", err)
}

// CompletionMap returns the completion map for the user. Only rows with
// completed = TRUE appear, keeping the shape identical to the sparse
// local map.
func (r *ProgressRepository) CompletionMap(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT course_id FROM course_progress
		WHERE user_id = $1 AND completed = TRUE
	`, userID)
	if err != nil {
		return nil, readErr("CompletionMap", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var courseID string
		if err := rows.Scan(&courseID); err != nil {
			return nil, readErr("CompletionMap", err)
		}
		out[courseID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("CompletionMap", err)
	}
	return out, nil
}

// CourseCompletion returns the completion flag for one course.
func (r *ProgressRepository) CourseCompletion(ctx context.Context, userID, courseID string) (bool, error) {
	var completed bool
	err := r.conn.QueryRow(ctx, `
		SELECT completed FROM course_progress
		WHERE user_id = $1 AND course_id = $2
	`, userID, courseID).Scan(&completed)
	if errors.Is(err, ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, readErr("CourseCompletion", err)
	}
	return completed, nil
}

// SetCourseCompletion upserts the boolean row keyed by (user, course).
func (r *ProgressRepository) SetCourseCompletion(ctx context.Context, userID, courseID string, completed bool) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO course_progress (user_id, course_id, completed, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET completed = EXCLUDED.completed, updated_at = NOW()
	`, userID, courseID, completed)
	if err != nil {
		return writeErr("SetCourseCompletion", err)
	}
	return nil
}

// FocusSkill returns the active skill id. A missing row and a NULL
// skill_id both read as ""; "explicitly cleared" and "never set" are
// deliberately indistinguishable.
func (r *ProgressRepository) FocusSkill(ctx context.Context, userID string) (string, error) {
	var skill *string
	err := r.conn.QueryRow(ctx, `
		SELECT skill_id FROM focus_skills WHERE user_id = $1
	`, userID).Scan(&skill)
	if errors.Is(err, ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", readErr("FocusSkill", err)
	}
	if skill == nil {
		return "", nil
	}
	return *skill, nil
}

// SetFocusSkill upserts the single row per user; clearing writes NULL
// rather than deleting the row.
func (r *ProgressRepository) SetFocusSkill(ctx context.Context, userID, skillID string) error {
	var skill *string
	if skillID != "" {
		skill = &skillID
	}
	_, err := r.conn.Exec(ctx, `
		INSERT INTO focus_skills (user_id, skill_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET skill_id = EXCLUDED.skill_id, updated_at = NOW()
	`, userID, skill)
	if err != nil {
		return writeErr("SetFocusSkill", err)
	}
	return nil
}

// ListCheckins returns all entries ordered descending by day, newest
// same-day entry first.
func (r *ProgressRepository) ListCheckins(ctx context.Context, userID string) ([]progress.Checkin, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, to_char(day, 'YYYY-MM-DD'), focus, notes, created_at
		FROM checkins
		WHERE user_id = $1
		ORDER BY day DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, readErr("ListCheckins", err)
	}
	defer rows.Close()

	var entries []progress.Checkin
	for rows.Next() {
		var c progress.Checkin
		var focus string
		var createdAt time.Time
		if err := rows.Scan(&c.ID, &c.Day, &focus, &c.Notes, &createdAt); err != nil {
			return nil, readErr("ListCheckins", err)
		}
		c.Focus = progress.FocusArea(focus)
		c.CreatedAt = createdAt
		entries = append(entries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("ListCheckins", err)
	}
	return entries, nil
}

// AddCheckin appends one entry; the insert either lands whole or fails
// with no partial effect.
func (r *ProgressRepository) AddCheckin(ctx context.Context, userID string, entry progress.Checkin) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.conn.Exec(ctx, `
		INSERT INTO checkins (id, user_id, day, focus, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, entry.Day, string(entry.Focus), entry.Notes, createdAt)
	if err != nil {
		return writeErr("AddCheckin", err)
	}
	return nil
}

// ClearCheckins removes every entry for the user.
func (r *ProgressRepository) ClearCheckins(ctx context.Context, userID string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM checkins WHERE user_id = $1`, userID)
	if err != nil {
		return writeErr("ClearCheckins", err)
	}
	return nil
}
