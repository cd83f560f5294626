package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/habit-api/internal/models"
)

// HabitRepository handles habit database operations
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

const habitColumns = `id, title, location, action, is_good, award, is_public, period,
	owner_id, time_to_complete_seconds, remind_time, related_habit_id, created_at, updated_at`

// Create inserts a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	query := `
		INSERT INTO habits (id, title, location, action, is_good, award, is_public, period,
			owner_id, time_to_complete_seconds, remind_time, related_habit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		habit.ID,
		habit.Title,
		habit.Location,
		habit.Action,
		habit.IsGood,
		habit.Award,
		habit.IsPublic,
		habit.Period,
		habit.Owner,
		habit.TimeToComplete,
		habit.Time,
		habit.RelatedHabit,
		now,
	).Scan(&habit.CreatedAt, &habit.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`

	habit, err := scanHabit(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}

	return habit, nil
}

// Update rewrites all mutable habit fields
func (r *HabitRepository) Update(ctx context.Context, habit *models.Habit) error {
	query := `
		UPDATE habits
		SET title = $2, location = $3, action = $4, is_good = $5, award = $6, is_public = $7,
			period = $8, time_to_complete_seconds = $9, remind_time = $10, related_habit_id = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		habit.ID,
		habit.Title,
		habit.Location,
		habit.Action,
		habit.IsGood,
		habit.Award,
		habit.IsPublic,
		habit.Period,
		habit.TimeToComplete,
		habit.Time,
		habit.RelatedHabit,
		time.Now(),
	).Scan(&habit.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("habit %s: %w", habit.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	return nil
}

// Delete removes a habit by ID
func (r *HabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListByOwnerPaginated retrieves one page of the owner's habits plus
// the total count.
func (r *HabitRepository) ListByOwnerPaginated(ctx context.Context, owner uuid.UUID, page, pageSize int) ([]*models.Habit, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits WHERE owner_id = $1`, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count habits: %w", err)
	}

	query := `SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1
		ORDER BY title, created_at
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, owner, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	habits, err := collectHabits(rows)
	if err != nil {
		return nil, 0, err
	}
	return habits, total, nil
}

// ListPublicPaginated retrieves one page of public habits plus the
// total count, regardless of ownership.
func (r *HabitRepository) ListPublicPaginated(ctx context.Context, page, pageSize int) ([]*models.Habit, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits WHERE is_public`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count public habits: %w", err)
	}

	query := `SELECT ` + habitColumns + `
		FROM habits
		WHERE is_public
		ORDER BY title, created_at
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query public habits: %w", err)
	}
	defer rows.Close()

	habits, err := collectHabits(rows)
	if err != nil {
		return nil, 0, err
	}
	return habits, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*models.Habit, error) {
	habit := &models.Habit{}
	var award sql.NullString
	var related uuid.NullUUID

	err := row.Scan(
		&habit.ID,
		&habit.Title,
		&habit.Location,
		&habit.Action,
		&habit.IsGood,
		&award,
		&habit.IsPublic,
		&habit.Period,
		&habit.Owner,
		&habit.TimeToComplete,
		&habit.Time,
		&related,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if award.Valid {
		habit.Award = &award.String
	}
	if related.Valid {
		id := related.UUID
		habit.RelatedHabit = &id
	}
	return habit, nil
}

func collectHabits(rows *sql.Rows) ([]*models.Habit, error) {
	var habits []*models.Habit
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, habit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}
