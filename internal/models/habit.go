package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinPeriod is the shortest allowed recurrence interval in days
	MinPeriod = 1
	// MaxPeriod is the longest allowed recurrence interval in days
	MaxPeriod = 7
	// DefaultPeriod is the recurrence interval used when none is given
	DefaultPeriod = 1
	// MaxTimeToComplete is the upper bound on a habit's completion time
	MaxTimeToComplete = 120 * time.Second
)

// Habit represents a recurring personal action a user wants to be
// reminded of. A habit flagged IsGood is a "pleasant" reward habit: it
// may be chained after another habit via RelatedHabit but never carries
// an award or a further chain itself.
type Habit struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Location       string     `json:"location"`
	Action         string     `json:"action"`
	IsGood         bool       `json:"is_good"`
	Award          *string    `json:"award"`
	IsPublic       bool       `json:"is_public"`
	Period         int        `json:"period"`
	Owner          uuid.UUID  `json:"owner"`
	TimeToComplete Duration   `json:"time_to_complete"`
	Time           TimeOfDay  `json:"time"`
	RelatedHabit   *uuid.UUID `json:"related_habit"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}
