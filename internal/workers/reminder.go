// Package workers holds the queue consumers. The reminder dispatcher
// is the unit of work executed at each recurrence tick.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitloop/habit-api/internal/database"
	"github.com/habitloop/habit-api/internal/queue"
	"github.com/habitloop/habit-api/internal/telegram"
	"github.com/habitloop/habit-api/internal/telemetry"
	"go.uber.org/zap"
)

// retryDelay spaces out redeliveries of transient send failures.
const retryDelay = 30 * time.Second

// ReminderDispatcher processes reminder jobs: load the habit, load the
// owner, send the reminder text to the owner's Telegram chat.
type ReminderDispatcher struct {
	habits   database.HabitRepositoryInterface
	users    database.UserRepositoryInterface
	sender   telegram.Sender
	jobQueue queue.JobQueue // for re-enqueueing transient failures with a delay
	log      *zap.Logger
}

// NewReminderDispatcher creates a new reminder dispatcher
func NewReminderDispatcher(
	habits database.HabitRepositoryInterface,
	users database.UserRepositoryInterface,
	sender telegram.Sender,
	jobQueue queue.JobQueue,
	log *zap.Logger,
) *ReminderDispatcher {
	return &ReminderDispatcher{
		habits:   habits,
		users:    users,
		sender:   sender,
		jobQueue: jobQueue,
		log:      log,
	}
}

// ProcessJob processes a job based on its type
func (d *ReminderDispatcher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeReminder:
		if err := d.dispatch(ctx, job); err != nil {
			return d.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			d.log.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// dispatch sends the reminder for one habit tick.
func (d *ReminderDispatcher) dispatch(ctx context.Context, job *queue.Job) error {
	habit, err := d.habits.GetByID(ctx, job.HabitID)
	if err != nil {
		return fmt.Errorf("failed to load habit: %w", err)
	}

	owner, err := d.users.GetByID(ctx, habit.Owner)
	if err != nil {
		return fmt.Errorf("failed to load habit owner: %w", err)
	}

	text := fmt.Sprintf("Я буду [%s] в [%s] в [%s] !", habit.Action, habit.Time, habit.Location)

	sendCtx, cancel := context.WithTimeout(ctx, telegram.DefaultSendTimeout)
	defer cancel()
	if err := d.sender.SendMessage(sendCtx, owner.ChatID, text); err != nil {
		return fmt.Errorf("failed to deliver reminder: %w", err)
	}

	telemetry.RemindersSent.Inc()
	d.log.Info("reminder_sent",
		zap.String("habit_id", habit.ID.String()),
		zap.Int64("chat_id", owner.ChatID),
	)
	return nil
}

// handleJobError decides the fate of a failed job. A missing habit is
// an invariant violation (the job should have been unbound with the
// habit) and goes straight to the DLQ. Transient delivery failures are
// re-enqueued with a delay until the retry budget runs out; the
// dispatcher itself never blocks on retries.
func (d *ReminderDispatcher) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		telemetry.RemindersFailed.WithLabelValues("missing_record").Inc()
		d.log.Error("reminder_job_references_missing_record",
			zap.String("habit_id", job.HabitID.String()),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			d.log.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return err
	}

	telemetry.RemindersFailed.WithLabelValues("delivery").Inc()

	if job.CanRetry() && d.jobQueue != nil {
		retry := *job
		retry.IncrementRetry()
		notBefore := time.Now().Add(retryDelay)
		retry.NotBefore = &notBefore
		if enqErr := d.jobQueue.Enqueue(ctx, &retry); enqErr != nil {
			d.log.Error("failed_to_enqueue_retry", zap.Error(enqErr))
			if nackErr := msg.Nack(false); nackErr != nil {
				d.log.Warn("failed_to_nack_job", zap.Error(nackErr))
			}
			return err
		}
		d.log.Warn("reminder_delivery_failed_retry_scheduled",
			zap.String("habit_id", job.HabitID.String()),
			zap.Int("retry_count", retry.RetryCount),
			zap.Error(err),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			d.log.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
		}
		return err
	}

	d.log.Error("reminder_delivery_failed_permanently",
		zap.String("habit_id", job.HabitID.String()),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		d.log.Warn("failed_to_nack_job", zap.Error(nackErr))
	}
	return err
}
