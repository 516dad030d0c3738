package db

import (
	"time"

	"github.com/chris/dayplan/internal/plan"
)

type User struct {
	ID          string         `json:"id"`
	Timezone    string         `json:"timezone"`
	MorningTime plan.TimeOfDay `json:"morning_time"`
	EveningTime plan.TimeOfDay `json:"evening_time"`
}

type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
	StatusSkipped TaskStatus = "skipped"
)

type Task struct {
	ID               int64           `json:"id"`
	UserID           string          `json:"user_id"`
	Title            string          `json:"title"`
	CreatedAt        time.Time       `json:"created_at"`
	Day              plan.Date       `json:"day"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	Due              *plan.TimeOfDay `json:"due,omitempty"`
	Priority         plan.Priority   `json:"priority"`
	Status           TaskStatus      `json:"status"`
}

// Scheduled converts a stored task into scheduler input.
func (t Task) Scheduled() plan.ScheduledTask {
	return plan.ScheduledTask{
		ID:               t.ID,
		Title:            t.Title,
		EstimatedMinutes: t.EstimatedMinutes,
		Due:              t.Due,
		Priority:         t.Priority,
	}
}

// NewTask is a task row before it has an id. New tasks are always pending.
type NewTask struct {
	UserID           string
	Title            string
	CreatedAt        time.Time
	Day              plan.Date
	EstimatedMinutes int
	Due              *plan.TimeOfDay
	Priority         plan.Priority
}

type Reminder struct {
	ID      int64     `json:"id"`
	UserID  string    `json:"user_id"`
	TaskID  int64     `json:"task_id"`
	Kind    string    `json:"kind"` // before, start
	Message string    `json:"message"`
	FireAt  time.Time `json:"fire_at"`
	Fired   bool      `json:"fired"`
}
