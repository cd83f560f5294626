// Package scheduling keeps exactly one scheduled reminder job in sync
// with each habit's time and period.
package scheduling

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/habitloop/habit-api/internal/models"
	"go.uber.org/zap"
)

const jobNamePrefix = "HabitTask"

// JobName derives the deterministic scheduled job name for a habit.
func JobName(habitID uuid.UUID) string {
	return jobNamePrefix + habitID.String()
}

// ScheduleStore is the durable store the binder reconciles against.
type ScheduleStore interface {
	Upsert(ctx context.Context, job *models.ScheduledJob) error
	Replace(ctx context.Context, name string, job *models.ScheduledJob) error
	DeleteByName(ctx context.Context, name string) error
}

// Binder maintains the habit -> scheduled job mapping. The timezone is
// process-wide configuration, not per-user state.
type Binder struct {
	store    ScheduleStore
	timezone string
	log      *zap.Logger
}

// NewBinder creates a binder that writes jobs in the given timezone.
func NewBinder(store ScheduleStore, timezone string, log *zap.Logger) *Binder {
	return &Binder{store: store, timezone: timezone, log: log}
}

// JobFor derives the recurrence definition for a habit: trigger minute
// and hour from the habit's time, a day-of-week step of the habit's
// period, every month.
func (b *Binder) JobFor(habit *models.Habit) *models.ScheduledJob {
	return &models.ScheduledJob{
		ID:        uuid.New(),
		Name:      JobName(habit.ID),
		HabitID:   habit.ID,
		Minute:    strconv.Itoa(habit.Time.Minute),
		Hour:      strconv.Itoa(habit.Time.Hour),
		DayOfWeek: fmt.Sprintf("*/%d", habit.Period),
		Month:     "*",
		Timezone:  b.timezone,
	}
}

// Bind creates the habit's scheduled job. Binding is an upsert keyed
// by job name, so binding an already-bound habit rewrites its
// recurrence instead of duplicating the job.
func (b *Binder) Bind(ctx context.Context, habit *models.Habit) error {
	job := b.JobFor(habit)
	if err := b.store.Upsert(ctx, job); err != nil {
		return fmt.Errorf("failed to bind habit %s: %w", habit.ID, err)
	}
	b.log.Info("scheduled_job_bound",
		zap.String("job_name", job.Name),
		zap.String("cron_spec", job.CronSpec()),
		zap.String("timezone", job.Timezone),
	)
	return nil
}

// Unbind removes the habit's scheduled job. Unbinding a habit with no
// job is a no-op, not an error.
func (b *Binder) Unbind(ctx context.Context, habitID uuid.UUID) error {
	name := JobName(habitID)
	if err := b.store.DeleteByName(ctx, name); err != nil {
		return fmt.Errorf("failed to unbind habit %s: %w", habitID, err)
	}
	b.log.Info("scheduled_job_unbound", zap.String("job_name", name))
	return nil
}

// Rebind replaces the habit's scheduled job with one derived from the
// habit's current fields. Delete and recreate run in one store
// transaction so a crash mid-update cannot leave the habit jobless.
func (b *Binder) Rebind(ctx context.Context, habit *models.Habit) error {
	job := b.JobFor(habit)
	if err := b.store.Replace(ctx, job.Name, job); err != nil {
		return fmt.Errorf("failed to rebind habit %s: %w", habit.ID, err)
	}
	b.log.Info("scheduled_job_rebound",
		zap.String("job_name", job.Name),
		zap.String("cron_spec", job.CronSpec()),
	)
	return nil
}
