package postgres

import (
	"context"
	"fmt"
)

// Schema for the remote backend. All progress tables key on user_id plus
// the fact's own key; upserts on those unique keys give last-write-wins
// semantics without transactions spanning rows.

const migrationAccounts = `
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL,
    password_hash VARCHAR(100) NOT NULL,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Case-insensitive uniqueness: the lowered email is the canonical key.
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email_lower ON accounts (LOWER(email));
`

const migrationCourseProgress = `
CREATE TABLE IF NOT EXISTS course_progress (
    user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    course_id VARCHAR(100) NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, course_id)
);
`

const migrationFocusSkills = `
CREATE TABLE IF NOT EXISTS focus_skills (
    user_id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    skill_id VARCHAR(100),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migrationCheckins = `
CREATE TABLE IF NOT EXISTS checkins (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    day DATE NOT NULL,
    focus VARCHAR(20) NOT NULL,
    notes TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_focus CHECK (focus IN ('phase1', 'phase2', 'phase3', 'skills', 'other')),
    CONSTRAINT notes_not_empty CHECK (notes <> '')
);

CREATE INDEX IF NOT EXISTS idx_checkins_user_day ON checkins(user_id, day DESC, created_at DESC);
`

var migrations = []struct {
	name string
	sql  string
}{
	{"accounts", migrationAccounts},
	{"course_progress", migrationCourseProgress},
	{"focus_skills", migrationFocusSkills},
	{"checkins", migrationCheckins},
}

// Migrate applies the schema. Every statement is idempotent, so running
// it on every startup is safe.
func Migrate(ctx context.Context, conn *Connection) error {
	for _, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("postgres: migration %s: %w", m.name, err)
		}
	}
	return nil
}
