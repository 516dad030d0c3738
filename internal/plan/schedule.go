package plan

import (
	"sort"
	"time"
)

// PlanWindow is the part of the day blocks may be placed in, plus the break
// inserted after every block.
type PlanWindow struct {
	Start        TimeOfDay
	End          TimeOfDay
	BreakMinutes int
}

// DefaultWindow is 09:00-18:00 with 5-minute breaks.
var DefaultWindow = PlanWindow{
	Start:        TimeOfDay{Hour: 9},
	End:          TimeOfDay{Hour: 18},
	BreakMinutes: 5,
}

// ScheduledTask is a persisted task as the scheduler sees it.
type ScheduledTask struct {
	ID               int64
	Title            string
	EstimatedMinutes int
	Due              *TimeOfDay
	Priority         Priority
}

// TimeBlock is one placed task: [Start, End) on a single day.
type TimeBlock struct {
	TaskID   int64
	Title    string
	Priority Priority
	Start    time.Time
	End      time.Time
}

// BuildSchedule greedily packs tasks into the window in priority order.
//
// Tasks are sorted by priority, then due time (tasks with one first, earlier
// first), then shorter estimate, then id. Placement walks that order and stops
// at the first task that does not fit; later tasks are never tried, so a
// lower-priority task can't take the place of one that missed out. Due times
// affect ordering only and are not enforced.
func BuildSchedule(day Date, loc *time.Location, tasks []ScheduledTask, window PlanWindow) []TimeBlock {
	start := Combine(day, window.Start, loc)
	end := Combine(day, window.End, loc)
	if !end.After(start) || len(tasks) == 0 {
		return nil
	}

	ordered := make([]ScheduledTask, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return lessForSchedule(ordered[i], ordered[j])
	})

	// Minutes are compared before converting to a Duration, which overflows
	// for estimates past a few million hours.
	pause := time.Duration(min(max(0, window.BreakMinutes), minutesPerDay)) * time.Minute
	cur := start
	var blocks []TimeBlock
	for _, t := range ordered {
		mins := max(1, t.EstimatedMinutes)
		if mins > int(end.Sub(cur)/time.Minute) {
			break
		}
		dur := time.Duration(mins) * time.Minute
		blocks = append(blocks, TimeBlock{
			TaskID:   t.ID,
			Title:    t.Title,
			Priority: t.Priority,
			Start:    cur,
			End:      cur.Add(dur),
		})
		cur = cur.Add(dur + pause)
		if !cur.Before(end) {
			break
		}
	}
	return blocks
}

func lessForSchedule(a, b ScheduledTask) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if da, db := dueRank(a), dueRank(b); da != db {
		return da < db
	}
	if a.EstimatedMinutes != b.EstimatedMinutes {
		return a.EstimatedMinutes < b.EstimatedMinutes
	}
	return a.ID < b.ID
}

const minutesPerDay = 24 * 60

// dueRank puts every due-less task after the latest possible due time.
func dueRank(t ScheduledTask) int {
	if t.Due == nil {
		return minutesPerDay
	}
	return t.Due.Minutes()
}
