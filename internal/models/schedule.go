package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduledJob is the recurring reminder registration bound 1:1 to a
// habit. Name is deterministic ("HabitTask" + habit id) so the binding
// can be replaced or removed by name alone. The recurrence fields hold
// a crontab definition: Minute and Hour are numeric, DayOfWeek is a
// "*/N" step expression, Month is "*".
type ScheduledJob struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	HabitID   uuid.UUID `json:"habit_id"`
	Minute    string    `json:"minute"`
	Hour      string    `json:"hour"`
	DayOfWeek string    `json:"day_of_week"`
	Month     string    `json:"month"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CronSpec renders the recurrence as a standard five-field cron
// expression (minute hour day-of-month month day-of-week).
func (j *ScheduledJob) CronSpec() string {
	return fmt.Sprintf("%s %s * %s %s", j.Minute, j.Hour, j.Month, j.DayOfWeek)
}
