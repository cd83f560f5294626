package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/habitloop/habit-api/internal/models"
)

// ScheduleRepository handles scheduled job database operations. Job
// names are unique; the write paths are keyed by name so the binding
// layer can upsert, replace and delete without knowing row IDs.
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Upsert creates the job or, if a job with the same name exists,
// rewrites its recurrence definition in place.
func (r *ScheduleRepository) Upsert(ctx context.Context, job *models.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (id, name, habit_id, minute, hour, day_of_week, month, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (name) DO UPDATE
		SET habit_id = EXCLUDED.habit_id,
			minute = EXCLUDED.minute,
			hour = EXCLUDED.hour,
			day_of_week = EXCLUDED.day_of_week,
			month = EXCLUDED.month,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		job.ID,
		job.Name,
		job.HabitID,
		job.Minute,
		job.Hour,
		job.DayOfWeek,
		job.Month,
		job.Timezone,
		time.Now(),
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert scheduled job: %w", err)
	}

	return nil
}

// Replace atomically deletes any job with the given name and inserts
// the new definition in one transaction, so a crash mid-update cannot
// leave the habit without a job.
func (r *ScheduleRepository) Replace(ctx context.Context, name string, job *models.ScheduledJob) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete scheduled job: %w", err)
	}

	query := `
		INSERT INTO scheduled_jobs (id, name, habit_id, minute, hour, day_of_week, month, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		job.ID,
		job.Name,
		job.HabitID,
		job.Minute,
		job.Hour,
		job.DayOfWeek,
		job.Month,
		job.Timezone,
		time.Now(),
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scheduled job replacement: %w", err)
	}
	return nil
}

// DeleteByName removes the named job. A missing job is not an error.
func (r *ScheduleRepository) DeleteByName(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete scheduled job: %w", err)
	}
	return nil
}

// GetByName retrieves a scheduled job by name
func (r *ScheduleRepository) GetByName(ctx context.Context, name string) (*models.ScheduledJob, error) {
	query := `
		SELECT id, name, habit_id, minute, hour, day_of_week, month, timezone, created_at, updated_at
		FROM scheduled_jobs
		WHERE name = $1
	`

	job := &models.ScheduledJob{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&job.ID,
		&job.Name,
		&job.HabitID,
		&job.Minute,
		&job.Hour,
		&job.DayOfWeek,
		&job.Month,
		&job.Timezone,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scheduled job %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled job: %w", err)
	}

	return job, nil
}

// List retrieves all scheduled jobs
func (r *ScheduleRepository) List(ctx context.Context) ([]*models.ScheduledJob, error) {
	query := `
		SELECT id, name, habit_id, minute, hour, day_of_week, month, timezone, created_at, updated_at
		FROM scheduled_jobs
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScheduledJob
	for rows.Next() {
		job := &models.ScheduledJob{}
		err := rows.Scan(
			&job.ID,
			&job.Name,
			&job.HabitID,
			&job.Minute,
			&job.Hour,
			&job.DayOfWeek,
			&job.Month,
			&job.Timezone,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled jobs: %w", err)
	}

	return jobs, nil
}
