package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/habitloop/habit-api/internal/models"
)

// HabitLookup resolves a habit id to its current record. The engine
// only reads through it; injecting the lookup keeps the rules pure and
// testable with fakes.
type HabitLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
}

// Engine applies the cross-field habit rules. The rules run in a fixed
// order and the first violated rule is the one reported.
type Engine struct {
	lookup HabitLookup
}

// NewEngine creates a validation engine backed by the given lookup.
func NewEngine(lookup HabitLookup) *Engine {
	return &Engine{lookup: lookup}
}

// ValidateHabit checks the full candidate record (after any partial
// update has been merged in). It returns a *Error for rule violations
// and passes through lookup failures (e.g. a missing related habit)
// unchanged.
func (e *Engine) ValidateHabit(ctx context.Context, habit *models.Habit) error {
	// Rule 1: an award and a related habit are mutually exclusive.
	if habit.Award != nil && habit.RelatedHabit != nil {
		return recordError(MsgAwardAndRelated)
	}

	// Rule 2: completion time is capped at two minutes.
	if time.Duration(habit.TimeToComplete) > models.MaxTimeToComplete {
		return recordError(MsgTimeToComplete)
	}

	// Rule 3: only a pleasant habit may be chained as the reward.
	if habit.RelatedHabit != nil {
		related, err := e.lookup.GetByID(ctx, *habit.RelatedHabit)
		if err != nil {
			return fmt.Errorf("failed to resolve related habit: %w", err)
		}
		if !related.IsGood {
			return recordError(MsgRelatedNotGood)
		}
	}

	// Rule 4: a pleasant habit carries neither award nor chain.
	if habit.IsGood && (habit.Award != nil || habit.RelatedHabit != nil) {
		return recordError(MsgGoodHabitNoExtra)
	}

	return nil
}
