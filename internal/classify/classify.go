// Package classify assigns a priority tier to each task a user enters.
package classify

import (
	"context"
	"time"

	"github.com/chris/dayplan/internal/plan"
)

// TaskDraft is a parsed task line before it is stored.
type TaskDraft struct {
	Title            string
	EstimatedMinutes int
	Due              *plan.TimeOfDay
}

// Classifier returns one priority per draft, in input order. It never fails;
// implementations fall back to a safe default instead.
type Classifier interface {
	Classify(ctx context.Context, drafts []TaskDraft, day plan.Date, loc *time.Location, now time.Time) []plan.Priority
}
