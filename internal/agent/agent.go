// Package agent turns chat messages into planning commands: settings,
// entering today's tasks, listing them and marking them done or skipped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chris/dayplan/internal/classify"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/parse"
	"github.com/chris/dayplan/internal/plan"
	"github.com/chris/dayplan/internal/zone"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const helpText = "Commands:\n" +
	"/start - register\n" +
	"/timezone Europe/Moscow - set your timezone\n" +
	"/morning HH:MM - when to ask for today's tasks\n" +
	"/evening HH:MM - when to review the day\n" +
	"/plan - enter tasks and build a schedule\n" +
	"/tasks - show today's tasks\n" +
	"/done <id> - mark a task done\n" +
	"/skip <id> - skip a task"

const planPrompt = "Send today's tasks, one per line.\n" +
	"Optional: @HH:MM for a deadline and 30m / 2h for a duration.\n" +
	"Example:\n" +
	"Call with Peter @10:30 30m\n" +
	"Report @17:00 2h"

// Settings are the defaults the agent applies to new users and plans.
type Settings struct {
	Window       plan.PlanWindow
	ReminderLead time.Duration
	Timezone     string
	Morning      plan.TimeOfDay
	Evening      plan.TimeOfDay
}

type Agent struct {
	db         *db.DB
	classifier classify.Classifier
	zones      *zone.Cache
	settings   Settings
	log        *zap.SugaredLogger
	now        func() time.Time

	mu       sync.Mutex
	awaiting map[string]bool // users whose next message is a task list
}

func New(database *db.DB, classifier classify.Classifier, zones *zone.Cache, settings Settings, log *zap.SugaredLogger) *Agent {
	return &Agent{
		db:         database,
		classifier: classifier,
		zones:      zones,
		settings:   settings,
		log:        log,
		now:        time.Now,
		awaiting:   make(map[string]bool),
	}
}

// Run handles one message from userID and returns the reply text.
func (a *Agent) Run(ctx context.Context, userID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	u, err := a.user(userID)
	if err != nil {
		return "", err
	}

	if input[0] == '/' || input[0] == '!' {
		return a.command(ctx, u, input)
	}
	if a.isAwaiting(userID) {
		return a.planTasks(ctx, u, input)
	}
	return "Send /plan to enter today's tasks, or /help for the list of commands.", nil
}

func (a *Agent) command(ctx context.Context, u *db.User, input string) (string, error) {
	head, rest, _ := strings.Cut(input, "\n")
	fields := strings.Fields(head)
	name := strings.ToLower(fields[0][1:])
	args := fields[1:]

	switch name {
	case "start":
		return "Hi! I'll help you plan the day.\n\n" +
			"1) Set your timezone with /timezone Europe/Moscow\n" +
			"2) Send /plan to enter your tasks\n\n" + helpText, nil

	case "help":
		return helpText, nil

	case "timezone":
		if len(args) == 0 {
			return "Give me an IANA timezone, for example: /timezone Europe/Moscow", nil
		}
		if _, err := a.zones.Load(args[0]); err != nil {
			return "I don't know that timezone. Examples: Europe/Moscow, Europe/Kyiv, UTC", nil
		}
		u.Timezone = args[0]
		if err := a.db.UpsertUser(*u); err != nil {
			return "", err
		}
		return "Timezone set: " + u.Timezone, nil

	case "morning", "evening":
		if len(args) == 0 {
			return fmt.Sprintf("Usage: /%s HH:MM", name), nil
		}
		t, err := plan.ParseTimeOfDay(args[0])
		if err != nil {
			return fmt.Sprintf("Usage: /%s HH:MM", name), nil
		}
		if name == "morning" {
			u.MorningTime = t
		} else {
			u.EveningTime = t
		}
		if err := a.db.UpsertUser(*u); err != nil {
			return "", err
		}
		return fmt.Sprintf("Ok, %s message at %s.", name, t), nil

	case "plan":
		// Tasks may follow the command on the next lines.
		if strings.TrimSpace(rest) != "" {
			return a.planTasks(ctx, u, rest)
		}
		a.setAwaiting(u.ID, true)
		return planPrompt, nil

	case "tasks":
		return a.listTasks(u)

	case "done":
		return a.setStatus(u, name, args, db.StatusDone, "Marked as done.")

	case "skip":
		return a.setStatus(u, name, args, db.StatusSkipped, "Ok, skipped.")
	}
	return "Unknown command. " + helpText, nil
}

// user loads a user, registering them with the defaults on first contact.
func (a *Agent) user(id string) (*db.User, error) {
	u, err := a.db.GetUser(id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	u = &db.User{
		ID:          id,
		Timezone:    a.settings.Timezone,
		MorningTime: a.settings.Morning,
		EveningTime: a.settings.Evening,
	}
	if err := a.db.UpsertUser(*u); err != nil {
		return nil, err
	}
	a.log.Infow("agent: registered user", "user", id, "timezone", u.Timezone)
	return u, nil
}

func (a *Agent) localNow(u *db.User) (time.Time, *time.Location, error) {
	loc, err := a.zones.Load(u.Timezone)
	if err != nil {
		return time.Time{}, nil, err
	}
	return a.now().In(loc), loc, nil
}

func (a *Agent) planTasks(ctx context.Context, u *db.User, text string) (string, error) {
	drafts := parse.Lines(text)
	if len(drafts) == 0 {
		return "I couldn't find any tasks. Try again, one per line.", nil
	}
	now, loc, err := a.localNow(u)
	if err != nil {
		return "", err
	}
	today := plan.DateOf(now)

	prios := a.classifier.Classify(ctx, drafts, today, loc, now)
	tasks := make([]db.NewTask, len(drafts))
	for i, d := range drafts {
		tasks[i] = db.NewTask{
			UserID:           u.ID,
			Title:            d.Title,
			CreatedAt:        now,
			Day:              today,
			EstimatedMinutes: d.EstimatedMinutes,
			Due:              d.Due,
			Priority:         prios[i],
		}
	}
	if _, err := a.db.ReplaceTasksForDay(u.ID, today, tasks); err != nil {
		return "", err
	}

	pending, err := a.db.ListTasks(u.ID, today, db.StatusPending)
	if err != nil {
		return "", err
	}
	input := make([]plan.ScheduledTask, len(pending))
	for i, t := range pending {
		input[i] = t.Scheduled()
	}
	blocks := plan.BuildSchedule(today, loc, input, a.settings.Window)

	if err := a.db.ReplaceReminders(u.ID, a.reminders(u.ID, blocks, now)); err != nil {
		return "", err
	}
	a.setAwaiting(u.ID, false)
	a.log.Infow("agent: planned day", "user", u.ID, "day", today.String(), "tasks", len(tasks), "blocks", len(blocks))

	if len(blocks) == 0 {
		return "Tasks saved, but I couldn't build a schedule (is the planning window too small?). /tasks shows the list.", nil
	}
	var b strings.Builder
	b.WriteString("Here's your schedule for today:\n")
	for _, blk := range blocks {
		fmt.Fprintf(&b, "- %s-%s (%s) %s (id %d)\n",
			blk.Start.Format("15:04"), blk.End.Format("15:04"), blk.Priority, blk.Title, blk.TaskID)
	}
	b.WriteString("Reminders are on. /tasks shows the list.")
	return b.String(), nil
}

// reminders creates a heads-up before each block and one at its start,
// skipping any whose time has already passed.
func (a *Agent) reminders(userID string, blocks []plan.TimeBlock, now time.Time) []db.Reminder {
	var out []db.Reminder
	for _, blk := range blocks {
		if lead := a.settings.ReminderLead; lead > 0 {
			at := blk.Start.Add(-lead)
			if at.After(now) {
				out = append(out, db.Reminder{
					UserID:  userID,
					TaskID:  blk.TaskID,
					Kind:    "before",
					Message: fmt.Sprintf("Reminder (starts %s): %s (id %d)", humanize.RelTime(blk.Start, at, "ago", "from now"), blk.Title, blk.TaskID),
					FireAt:  at,
				})
			}
		}
		if blk.Start.After(now) {
			out = append(out, db.Reminder{
				UserID:  userID,
				TaskID:  blk.TaskID,
				Kind:    "start",
				Message: fmt.Sprintf("Reminder (now): %s (id %d)", blk.Title, blk.TaskID),
				FireAt:  blk.Start,
			})
		}
	}
	return out
}

func (a *Agent) listTasks(u *db.User) (string, error) {
	now, _, err := a.localNow(u)
	if err != nil {
		return "", err
	}
	tasks, err := a.db.ListTasks(u.ID, plan.DateOf(now), "")
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "No tasks for today. Use /plan.", nil
	}
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		due := ""
		if t.Due != nil {
			due = " @" + t.Due.String()
		}
		lines[i] = fmt.Sprintf("%d. [%s] (%s) %s%s ~%dm", t.ID, t.Status, t.Priority, t.Title, due, t.EstimatedMinutes)
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Agent) setStatus(u *db.User, name string, args []string, status db.TaskStatus, ok string) (string, error) {
	usage := fmt.Sprintf("Usage: /%s <id>", name)
	if len(args) == 0 {
		return usage, nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usage, nil
	}
	if err := a.db.UpdateTaskStatus(u.ID, id, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Sprintf("Task %d not found.", id), nil
		}
		return "", err
	}
	return ok, nil
}

func (a *Agent) isAwaiting(userID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.awaiting[userID]
}

func (a *Agent) setAwaiting(userID string, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v {
		a.awaiting[userID] = true
	} else {
		delete(a.awaiting, userID)
	}
}
