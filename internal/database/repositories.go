package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/habitloop/habit-api/internal/models"
)

// HabitRepositoryInterface defines the interface for habit repository operations
// This interface enables better testability by allowing mock implementations
type HabitRepositoryInterface interface {
	Create(ctx context.Context, habit *models.Habit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	Update(ctx context.Context, habit *models.Habit) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwnerPaginated(ctx context.Context, owner uuid.UUID, page, pageSize int) ([]*models.Habit, int, error)
	ListPublicPaginated(ctx context.Context, page, pageSize int) ([]*models.Habit, int, error)
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ScheduleRepositoryInterface defines the interface for scheduled job repository operations
type ScheduleRepositoryInterface interface {
	Upsert(ctx context.Context, job *models.ScheduledJob) error
	Replace(ctx context.Context, name string, job *models.ScheduledJob) error
	DeleteByName(ctx context.Context, name string) error
	GetByName(ctx context.Context, name string) (*models.ScheduledJob, error)
	List(ctx context.Context) ([]*models.ScheduledJob, error)
}

// Ensure concrete types implement the interfaces
var (
	_ HabitRepositoryInterface    = (*HabitRepository)(nil)
	_ UserRepositoryInterface     = (*UserRepository)(nil)
	_ ScheduleRepositoryInterface = (*ScheduleRepository)(nil)
)
