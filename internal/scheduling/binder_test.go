package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/habitloop/habit-api/internal/models"
)

// fakeStore records the binder's calls.
type fakeStore struct {
	upserted []*models.ScheduledJob
	replaced []*models.ScheduledJob
	deleted  []string
}

func (f *fakeStore) Upsert(ctx context.Context, job *models.ScheduledJob) error {
	f.upserted = append(f.upserted, job)
	return nil
}

func (f *fakeStore) Replace(ctx context.Context, name string, job *models.ScheduledJob) error {
	f.replaced = append(f.replaced, job)
	return nil
}

func (f *fakeStore) DeleteByName(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func newTestHabit() *models.Habit {
	return &models.Habit{
		ID:     uuid.New(),
		Period: 3,
		Time:   models.TimeOfDay{Hour: 7, Minute: 30},
	}
}

func TestJobName(t *testing.T) {
	id := uuid.New()
	want := "HabitTask" + id.String()
	if got := JobName(id); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestJobForDerivesRecurrence(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store, "Europe/Moscow", zap.NewNop())
	habit := newTestHabit()

	job := binder.JobFor(habit)

	if job.Name != JobName(habit.ID) {
		t.Errorf("unexpected job name %q", job.Name)
	}
	if job.HabitID != habit.ID {
		t.Errorf("unexpected habit id %s", job.HabitID)
	}
	if job.Minute != "30" || job.Hour != "7" {
		t.Errorf("unexpected trigger time %s:%s", job.Hour, job.Minute)
	}
	if job.DayOfWeek != "*/3" {
		t.Errorf("expected day-of-week step */3, got %q", job.DayOfWeek)
	}
	if job.Month != "*" {
		t.Errorf("expected month *, got %q", job.Month)
	}
	if job.Timezone != "Europe/Moscow" {
		t.Errorf("unexpected timezone %q", job.Timezone)
	}
	if want := "30 7 * * */3"; job.CronSpec() != want {
		t.Errorf("expected cron spec %q, got %q", want, job.CronSpec())
	}
}

func TestBindUpserts(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store, "UTC", zap.NewNop())
	habit := newTestHabit()

	if err := binder.Bind(context.Background(), habit); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserted))
	}
	if store.upserted[0].Name != JobName(habit.ID) {
		t.Errorf("unexpected upserted job name %q", store.upserted[0].Name)
	}
}

func TestUnbindDeletesByName(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store, "UTC", zap.NewNop())
	id := uuid.New()

	if err := binder.Unbind(context.Background(), id); err != nil {
		t.Fatalf("Unbind failed: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != JobName(id) {
		t.Errorf("expected delete of %q, got %v", JobName(id), store.deleted)
	}
}

func TestRebindReplaces(t *testing.T) {
	store := &fakeStore{}
	binder := NewBinder(store, "UTC", zap.NewNop())
	habit := newTestHabit()

	if err := binder.Rebind(context.Background(), habit); err != nil {
		t.Fatalf("Rebind failed: %v", err)
	}
	if len(store.replaced) != 1 {
		t.Fatalf("expected 1 replace, got %d", len(store.replaced))
	}
	if len(store.upserted) != 0 || len(store.deleted) != 0 {
		t.Error("rebind must go through the transactional replace only")
	}
}
