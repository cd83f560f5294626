package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated
// application is safe across server, scheduler and worker processes.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		chat_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		location TEXT NOT NULL,
		action TEXT NOT NULL,
		is_good BOOLEAN NOT NULL DEFAULT FALSE,
		award TEXT,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		period INTEGER NOT NULL DEFAULT 1 CHECK (period BETWEEN 1 AND 7),
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		time_to_complete_seconds BIGINT NOT NULL DEFAULT 120,
		remind_time TIME NOT NULL,
		related_habit_id UUID REFERENCES habits(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_owner ON habits(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_habits_public ON habits(is_public) WHERE is_public`,
	`CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		habit_id UUID NOT NULL,
		minute TEXT NOT NULL,
		hour TEXT NOT NULL,
		day_of_week TEXT NOT NULL,
		month TEXT NOT NULL,
		timezone TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}
	return nil
}
