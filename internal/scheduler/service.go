// Package scheduler runs the beat process: it mirrors the scheduled_jobs
// table into an in-process cron runner and enqueues a reminder job each
// time a registration fires.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/habitloop/habit-api/internal/models"
	"github.com/habitloop/habit-api/internal/queue"
	"github.com/habitloop/habit-api/internal/telemetry"
)

// fireWindow bounds how long an enqueued tick stays deliverable. A
// reminder that cannot be dispatched within the window is dropped by
// the queue rather than delivered hours late.
const fireWindow = 5 * time.Minute

// ScheduleSource lists the registrations the runner must mirror.
type ScheduleSource interface {
	List(ctx context.Context) ([]*models.ScheduledJob, error)
}

// Service keeps a robfig/cron runner in sync with the scheduled_jobs
// table. The table is the source of truth: the API process writes it,
// the beat process only reads. Resync is a periodic full diff keyed by
// job name, so renamed specs and removed bindings converge without
// restarts.
type Service struct {
	source   ScheduleSource
	jobQueue queue.JobQueue
	resync   time.Duration
	log      *zap.Logger

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]entry // job name -> registered cron entry
}

type entry struct {
	id   cron.EntryID
	spec string
}

// New creates a scheduler service. All cron expressions are evaluated
// in loc, matching the timezone the recurrence was registered with.
func New(source ScheduleSource, jobQueue queue.JobQueue, loc *time.Location, resync time.Duration, log *zap.Logger) *Service {
	return &Service{
		source:   source,
		jobQueue: jobQueue,
		resync:   resync,
		log:      log,
		cron:     cron.New(cron.WithLocation(loc)),
		entries:  make(map[string]entry),
	}
}

// Run starts the cron runner and blocks until ctx is cancelled,
// resyncing against the table every resync interval.
func (s *Service) Run(ctx context.Context) error {
	if err := s.sync(ctx); err != nil {
		s.log.Error("initial_schedule_sync_failed", zap.Error(err))
	}

	s.cron.Start()
	defer func() {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()

	ticker := time.NewTicker(s.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler_stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				s.log.Error("schedule_resync_failed", zap.Error(err))
			}
		}
	}
}

// sync diffs the table against the registered entries by name. A job
// whose spec changed is removed and re-added; jobs no longer in the
// table are removed.
func (s *Service) sync(ctx context.Context) error {
	jobs, err := s.source.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		seen[job.Name] = struct{}{}
		spec := job.CronSpec()

		if cur, ok := s.entries[job.Name]; ok {
			if cur.spec == spec {
				continue
			}
			s.cron.Remove(cur.id)
			delete(s.entries, job.Name)
		}

		habitID := job.HabitID
		name := job.Name
		id, err := s.cron.AddFunc(spec, func() {
			s.fire(name, habitID)
		})
		if err != nil {
			s.log.Error("failed_to_register_cron_entry",
				zap.String("job_name", job.Name),
				zap.String("spec", spec),
				zap.Error(err),
			)
			continue
		}
		s.entries[job.Name] = entry{id: id, spec: spec}
		s.log.Info("schedule_registered",
			zap.String("job_name", job.Name),
			zap.String("spec", spec),
		)
	}

	for name, cur := range s.entries {
		if _, ok := seen[name]; ok {
			continue
		}
		s.cron.Remove(cur.id)
		delete(s.entries, name)
		s.log.Info("schedule_removed", zap.String("job_name", name))
	}

	telemetry.ScheduledJobsActive.Set(float64(len(s.entries)))
	return nil
}

// fire enqueues one reminder tick for a habit.
func (s *Service) fire(name string, habitID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job := queue.NewReminderJob(habitID)
	notAfter := time.Now().Add(fireWindow)
	job.NotAfter = &notAfter

	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		s.log.Error("failed_to_enqueue_reminder",
			zap.String("job_name", name),
			zap.Error(err),
		)
		return
	}

	telemetry.RemindersEnqueued.Inc()
	s.log.Info("reminder_enqueued",
		zap.String("job_name", name),
		zap.String("habit_id", habitID.String()),
	)
}
