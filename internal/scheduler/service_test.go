package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/habitloop/habit-api/internal/models"
	"github.com/habitloop/habit-api/internal/queue"
)

type fakeSource struct {
	jobs []*models.ScheduledJob
	err  error
}

func (f *fakeSource) List(ctx context.Context) ([]*models.ScheduledJob, error) {
	return f.jobs, f.err
}

type fakeQueue struct {
	enqueued []*queue.Job
}

func (f *fakeQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}
func (f *fakeQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}
func (f *fakeQueue) Close() error                          { return nil }
func (f *fakeQueue) HealthCheck(ctx context.Context) error { return nil }

func scheduledJob(name string, minute, hour string) *models.ScheduledJob {
	return &models.ScheduledJob{
		ID:        uuid.New(),
		Name:      name,
		HabitID:   uuid.New(),
		Minute:    minute,
		Hour:      hour,
		DayOfWeek: "*/1",
		Month:     "*",
		Timezone:  "UTC",
	}
}

func newTestService(source ScheduleSource) *Service {
	return New(source, &fakeQueue{}, time.UTC, time.Minute, zap.NewNop())
}

func TestSyncRegistersJobs(t *testing.T) {
	source := &fakeSource{jobs: []*models.ScheduledJob{
		scheduledJob("HabitTaskA", "0", "7"),
		scheduledJob("HabitTaskB", "30", "21"),
	}}
	svc := newTestService(source)

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(svc.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(svc.entries))
	}
	if _, ok := svc.entries["HabitTaskA"]; !ok {
		t.Error("HabitTaskA not registered")
	}
}

func TestSyncRemovesDeletedJobs(t *testing.T) {
	source := &fakeSource{jobs: []*models.ScheduledJob{
		scheduledJob("HabitTaskA", "0", "7"),
		scheduledJob("HabitTaskB", "30", "21"),
	}}
	svc := newTestService(source)

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	source.jobs = source.jobs[:1]
	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("resync failed: %v", err)
	}
	if len(svc.entries) != 1 {
		t.Fatalf("expected 1 entry after removal, got %d", len(svc.entries))
	}
	if _, ok := svc.entries["HabitTaskB"]; ok {
		t.Error("HabitTaskB should have been removed")
	}
}

func TestSyncReplacesChangedSpec(t *testing.T) {
	job := scheduledJob("HabitTaskA", "0", "7")
	source := &fakeSource{jobs: []*models.ScheduledJob{job}}
	svc := newTestService(source)

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	before := svc.entries["HabitTaskA"]

	job.Hour = "9"
	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("resync failed: %v", err)
	}
	after := svc.entries["HabitTaskA"]

	if before.spec == after.spec {
		t.Error("entry spec should have changed")
	}
	if after.spec != job.CronSpec() {
		t.Errorf("expected spec %q, got %q", job.CronSpec(), after.spec)
	}
}

func TestSyncUnchangedSpecKeepsEntry(t *testing.T) {
	job := scheduledJob("HabitTaskA", "0", "7")
	source := &fakeSource{jobs: []*models.ScheduledJob{job}}
	svc := newTestService(source)

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	before := svc.entries["HabitTaskA"]

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("resync failed: %v", err)
	}
	after := svc.entries["HabitTaskA"]

	if before.id != after.id {
		t.Error("unchanged spec must keep its cron entry")
	}
}

func TestSyncInvalidSpecSkipped(t *testing.T) {
	source := &fakeSource{jobs: []*models.ScheduledJob{
		scheduledJob("HabitTaskGood", "0", "7"),
		scheduledJob("HabitTaskBad", "not-a-minute", "7"),
	}}
	svc := newTestService(source)

	if err := svc.sync(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(svc.entries) != 1 {
		t.Fatalf("expected only the valid job to register, got %d entries", len(svc.entries))
	}
	if _, ok := svc.entries["HabitTaskBad"]; ok {
		t.Error("invalid spec must not register")
	}
}

func TestFireEnqueuesReminder(t *testing.T) {
	jobQueue := &fakeQueue{}
	svc := New(&fakeSource{}, jobQueue, time.UTC, time.Minute, zap.NewNop())

	habitID := uuid.New()
	svc.fire("HabitTask"+habitID.String(), habitID)

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(jobQueue.enqueued))
	}
	job := jobQueue.enqueued[0]
	if job.Type != queue.JobTypeReminder {
		t.Errorf("unexpected job type %q", job.Type)
	}
	if job.HabitID != habitID {
		t.Errorf("unexpected habit id %s", job.HabitID)
	}
	if job.NotAfter == nil {
		t.Error("tick must carry an expiry so stale reminders are dropped")
	}
}
