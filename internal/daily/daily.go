// Package daily runs the once-a-day morning prompt and evening review for
// every user, including carrying unfinished tasks over to the next day.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/plan"
	"github.com/chris/dayplan/internal/zone"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the slice of persistence the coordinator needs. *db.DB satisfies it.
type Store interface {
	ListUserIDs() ([]string, error)
	GetUser(id string) (*db.User, error)
	GetLastSentDays(userID string) (morning, evening plan.Date, err error)
	SetLastMorningSentDay(userID string, day plan.Date) error
	SetLastEveningSentDay(userID string, day plan.Date) error
	ListTasks(userID string, day plan.Date, status db.TaskStatus) ([]db.Task, error)
	AddTasks(tasks []db.NewTask) ([]int64, error)
}

// Notifier delivers a message to a user.
type Notifier interface {
	Send(ctx context.Context, userID, text string) error
}

// EveningOutcome is what the evening review did with unfinished tasks.
type EveningOutcome int

const (
	EveningNotRun EveningOutcome = iota
	// EveningAllDone: nothing was pending, only a congratulation went out.
	EveningAllDone
	// EveningCarriedOver: pending tasks were copied to tomorrow, escalated.
	EveningCarriedOver
	// EveningPlanExists: tomorrow already had tasks, so nothing was copied.
	EveningPlanExists
)

func (o EveningOutcome) String() string {
	switch o {
	case EveningAllDone:
		return "all-done"
	case EveningCarriedOver:
		return "carried-over"
	case EveningPlanExists:
		return "plan-exists"
	default:
		return "not-run"
	}
}

// Result describes what one tick did for one user.
type Result struct {
	UserID      string
	MorningSent bool
	EveningSent bool
	Evening     EveningOutcome
	Pending     []db.Task
	CarriedIDs  []int64
	Err         error
}

const MorningText = "Good morning! What are the key tasks for today? Send /plan."

const allDoneText = "Great job! Everything for today is closed. See you tomorrow."

type Coordinator struct {
	store  Store
	notify Notifier
	zones  *zone.Cache
	window time.Duration
	log    *zap.SugaredLogger

	mu sync.Mutex
}

// New builds a coordinator. window is the grace period after each scheduled
// time during which a tick still counts as on time.
func New(store Store, notify Notifier, zones *zone.Cache, window time.Duration, log *zap.SugaredLogger) *Coordinator {
	if window <= 0 {
		window = plan.DefaultDueWindow
	}
	return &Coordinator{store: store, notify: notify, zones: zones, window: window, log: log}
}

// Tick checks every user once. Users are processed one after another and a
// failure for one user doesn't stop the rest. Overlapping ticks are serialized.
func (c *Coordinator) Tick(ctx context.Context, now time.Time) []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	run := uuid.NewString()
	ids, err := c.store.ListUserIDs()
	if err != nil {
		c.log.Errorw("daily: listing users", "run", run, "error", err)
		return nil
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		res := c.runUser(ctx, id, now)
		if res.Err != nil {
			c.log.Warnw("daily: user check failed", "run", run, "user", id, "error", res.Err)
		}
		if res.MorningSent || res.EveningSent {
			c.log.Infow("daily: sent", "run", run, "user", id,
				"morning", res.MorningSent, "evening", res.Evening.String(), "pending", len(res.Pending))
		}
		results = append(results, res)
	}
	return results
}

func (c *Coordinator) runUser(ctx context.Context, userID string, now time.Time) Result {
	res := Result{UserID: userID}

	u, err := c.store.GetUser(userID)
	if err != nil {
		res.Err = err
		return res
	}
	// A zone that no longer loads means nothing is due for this user.
	loc, err := c.zones.Load(u.Timezone)
	if err != nil {
		res.Err = err
		return res
	}
	local := now.In(loc)
	today := plan.DateOf(local)

	lastMorning, lastEvening, err := c.store.GetLastSentDays(userID)
	if err != nil {
		res.Err = err
		return res
	}

	var errs []error
	if plan.IsDue(local, today, u.MorningTime, loc, lastMorning, c.window).Due {
		// Sent before recorded: a crash in between repeats the message.
		if err := c.notify.Send(ctx, userID, MorningText); err != nil {
			errs = append(errs, fmt.Errorf("sending morning prompt: %w", err))
		} else {
			res.MorningSent = true
			if err := c.store.SetLastMorningSentDay(userID, today); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if plan.IsDue(local, today, u.EveningTime, loc, lastEvening, c.window).Due {
		if err := c.evening(ctx, &res, today, local); err != nil {
			errs = append(errs, err)
		} else {
			res.EveningSent = true
			if err := c.store.SetLastEveningSentDay(userID, today); err != nil {
				errs = append(errs, err)
			}
		}
	}

	res.Err = errors.Join(errs...)
	return res
}

// evening reviews today's pending tasks. Tomorrow's plan is only filled in
// when it is empty; an existing plan is never touched.
func (c *Coordinator) evening(ctx context.Context, res *Result, today plan.Date, now time.Time) error {
	pending, err := c.store.ListTasks(res.UserID, today, db.StatusPending)
	if err != nil {
		return err
	}
	res.Pending = pending
	if len(pending) == 0 {
		res.Evening = EveningAllDone
		if err := c.notify.Send(ctx, res.UserID, allDoneText); err != nil {
			return fmt.Errorf("sending evening message: %w", err)
		}
		return nil
	}

	tomorrow := today.AddDays(1)
	planned, err := c.store.ListTasks(res.UserID, tomorrow, "")
	if err != nil {
		return err
	}
	if len(planned) > 0 {
		res.Evening = EveningPlanExists
	} else {
		carried := make([]db.NewTask, len(pending))
		for i, t := range pending {
			carried[i] = db.NewTask{
				UserID:           res.UserID,
				Title:            t.Title,
				CreatedAt:        now,
				Day:              tomorrow,
				EstimatedMinutes: t.EstimatedMinutes,
				Due:              t.Due,
				Priority:         plan.Carry(t.Priority),
			}
		}
		// One transaction, so a failed copy leaves tomorrow empty for the retry.
		ids, err := c.store.AddTasks(carried)
		if err != nil {
			return fmt.Errorf("carrying over %d tasks: %w", len(carried), err)
		}
		res.CarriedIDs = ids
		res.Evening = EveningCarriedOver
	}

	if err := c.notify.Send(ctx, res.UserID, EveningSummary(pending, res.Evening == EveningCarriedOver)); err != nil {
		return fmt.Errorf("sending evening summary: %w", err)
	}
	return nil
}

// EveningSummary lists pending tasks and says whether they were moved.
func EveningSummary(pending []db.Task, carried bool) string {
	var b strings.Builder
	b.WriteString("How did the day go? These tasks are still open:\n")
	for _, t := range pending {
		fmt.Fprintf(&b, "- %d. (%s) %s\n", t.ID, t.Priority, t.Title)
	}
	if carried {
		b.WriteString("I moved them to tomorrow with a higher priority.\n")
	} else {
		b.WriteString("Tomorrow already has a plan, so I didn't move anything.\n")
	}
	b.WriteString("Mark finished ones with /done <id> or drop them with /skip <id>. Tomorrow you can /plan again.")
	return b.String()
}
