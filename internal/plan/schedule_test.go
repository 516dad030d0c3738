package plan

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

var testDay = Date{Year: 2026, Month: time.January, Day: 11}

func at(h, m int) time.Time {
	return time.Date(2026, time.January, 11, h, m, 0, 0, time.UTC)
}

func tod(h, m int) *TimeOfDay {
	return &TimeOfDay{Hour: h, Minute: m}
}

func blockIDs(blocks []TimeBlock) []int64 {
	ids := make([]int64, len(blocks))
	for i, b := range blocks {
		ids[i] = b.TaskID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildSchedule_OrdersUrgentBeforeOptional(t *testing.T) {
	tasks := []ScheduledTask{
		{ID: 1, Title: "Optional", EstimatedMinutes: 30, Priority: Optional},
		{ID: 2, Title: "Urgent", EstimatedMinutes: 30, Priority: Urgent},
		{ID: 3, Title: "Important", EstimatedMinutes: 30, Priority: Important},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, DefaultWindow)

	if got := blockIDs(blocks); !equalIDs(got[:3], []int64{2, 3, 1}) {
		t.Fatalf("expected ids [2 3 1], got %v", got)
	}
	wantStarts := []time.Time{at(9, 0), at(9, 35), at(10, 10)}
	for i, want := range wantStarts {
		if !blocks[i].Start.Equal(want) {
			t.Errorf("block %d start = %s, want %s", i, blocks[i].Start.Format("15:04"), want.Format("15:04"))
		}
		if blocks[i].End.Sub(blocks[i].Start) != 30*time.Minute {
			t.Errorf("block %d duration = %s, want 30m", i, blocks[i].End.Sub(blocks[i].Start))
		}
	}
}

func TestBuildSchedule_TaskLongerThanWindow(t *testing.T) {
	tasks := []ScheduledTask{{ID: 1, Title: "Marathon", EstimatedMinutes: 600, Priority: Urgent}}
	if blocks := BuildSchedule(testDay, time.UTC, tasks, DefaultWindow); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
}

func TestBuildSchedule_HugeEstimates(t *testing.T) {
	for _, mins := range []int{200_000_000, math.MaxInt} {
		tasks := []ScheduledTask{{ID: 1, Title: "Forever", EstimatedMinutes: mins, Priority: Urgent}}
		if blocks := BuildSchedule(testDay, time.UTC, tasks, DefaultWindow); len(blocks) != 0 {
			t.Errorf("%d minutes: expected no blocks, got %+v", mins, blocks)
		}
	}

	window := DefaultWindow
	window.BreakMinutes = math.MaxInt
	tasks := []ScheduledTask{
		{ID: 1, Title: "A", EstimatedMinutes: 30, Priority: Urgent},
		{ID: 2, Title: "B", EstimatedMinutes: 30, Priority: Urgent},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, window)
	if len(blocks) != 1 || !blocks[0].End.After(blocks[0].Start) {
		t.Errorf("expected one well-formed block, got %+v", blocks)
	}
}

func TestBuildSchedule_EmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		tasks  []ScheduledTask
		window PlanWindow
	}{
		{"no tasks", nil, DefaultWindow},
		{"zero span", []ScheduledTask{{ID: 1, EstimatedMinutes: 5}}, PlanWindow{Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 9}}},
		{"inverted", []ScheduledTask{{ID: 1, EstimatedMinutes: 5}}, PlanWindow{Start: TimeOfDay{Hour: 18}, End: TimeOfDay{Hour: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if blocks := BuildSchedule(testDay, time.UTC, tt.tasks, tt.window); len(blocks) != 0 {
				t.Errorf("expected no blocks, got %d", len(blocks))
			}
		})
	}
}

func TestBuildSchedule_StopsAtFirstMisfit(t *testing.T) {
	// The urgent 2h task doesn't fit after the first one; the short optional
	// task would, but is never considered.
	window := PlanWindow{Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 11}, BreakMinutes: 0}
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 60, Priority: Urgent},
		{ID: 2, EstimatedMinutes: 120, Priority: Urgent},
		{ID: 3, EstimatedMinutes: 10, Priority: Optional},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, window)
	if got := blockIDs(blocks); !equalIDs(got, []int64{1}) {
		t.Fatalf("expected [1], got %v", got)
	}
}

func TestBuildSchedule_StopsWhenCursorReachesEnd(t *testing.T) {
	window := PlanWindow{Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 10}, BreakMinutes: 0}
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 60, Priority: Urgent},
		{ID: 2, EstimatedMinutes: 60, Priority: Urgent},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, window)
	if got := blockIDs(blocks); !equalIDs(got, []int64{1}) {
		t.Fatalf("expected [1], got %v", got)
	}
	if !blocks[0].End.Equal(at(10, 0)) {
		t.Errorf("expected block to end exactly at window end, got %s", blocks[0].End)
	}
}

func TestBuildSchedule_TieBreaks(t *testing.T) {
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 30, Priority: Important},
		{ID: 2, EstimatedMinutes: 30, Priority: Important, Due: tod(15, 0)},
		{ID: 3, EstimatedMinutes: 30, Priority: Important, Due: tod(11, 0)},
		{ID: 4, EstimatedMinutes: 10, Priority: Important},
		{ID: 5, EstimatedMinutes: 10, Priority: Important},
		{ID: 6, EstimatedMinutes: 90, Priority: Important, Due: tod(11, 0)},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, DefaultWindow)
	want := []int64{3, 6, 2, 4, 5, 1}
	if got := blockIDs(blocks); !equalIDs(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildSchedule_MinimumDurationAndNegativeBreak(t *testing.T) {
	window := PlanWindow{Start: TimeOfDay{Hour: 9}, End: TimeOfDay{Hour: 10}, BreakMinutes: -15}
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 0, Priority: Urgent},
		{ID: 2, EstimatedMinutes: -5, Priority: Urgent},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, window)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	for _, b := range blocks {
		if b.End.Sub(b.Start) != time.Minute {
			t.Errorf("task %d: expected 1m block, got %s", b.TaskID, b.End.Sub(b.Start))
		}
	}
	if !blocks[1].Start.Equal(blocks[0].End) {
		t.Errorf("negative break should be treated as zero: %s vs %s", blocks[1].Start, blocks[0].End)
	}
}

func TestBuildSchedule_DueTimeIsNotEnforced(t *testing.T) {
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 120, Priority: Urgent},
		{ID: 2, EstimatedMinutes: 30, Priority: Important, Due: tod(9, 30)},
	}
	blocks := BuildSchedule(testDay, time.UTC, tasks, DefaultWindow)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !blocks[1].Start.After(at(9, 30)) {
		t.Errorf("expected late placement, got %s", blocks[1].Start)
	}
}

func TestBuildSchedule_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	tasks := []ScheduledTask{{ID: 1, EstimatedMinutes: 30, Priority: Urgent}}
	blocks := BuildSchedule(testDay, loc, tasks, DefaultWindow)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if !blocks[0].Start.Equal(at(6, 0)) {
		t.Errorf("expected 09:00 local = 06:00 UTC, got %s", blocks[0].Start.UTC())
	}
}

func TestBuildSchedule_DoesNotReorderInput(t *testing.T) {
	tasks := []ScheduledTask{
		{ID: 1, EstimatedMinutes: 30, Priority: Optional},
		{ID: 2, EstimatedMinutes: 30, Priority: Urgent},
	}
	BuildSchedule(testDay, time.UTC, tasks, DefaultWindow)
	if tasks[0].ID != 1 || tasks[1].ID != 2 {
		t.Errorf("input slice was reordered: %v", tasks)
	}
}

func TestBuildSchedule_OrderingInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prios := []Priority{Urgent, Important, Optional}
	for run := 0; run < 200; run++ {
		n := rng.Intn(15)
		tasks := make([]ScheduledTask, n)
		for i := range tasks {
			tasks[i] = ScheduledTask{
				ID:               int64(i + 1),
				EstimatedMinutes: rng.Intn(120),
				Priority:         prios[rng.Intn(3)],
			}
			if rng.Intn(2) == 0 {
				tasks[i].Due = tod(rng.Intn(24), rng.Intn(60))
			}
		}
		window := PlanWindow{
			Start:        TimeOfDay{Hour: rng.Intn(12)},
			End:          TimeOfDay{Hour: 12 + rng.Intn(12)},
			BreakMinutes: rng.Intn(20) - 5,
		}
		blocks := BuildSchedule(testDay, time.UTC, tasks, window)

		windowEnd := Combine(testDay, window.End, time.UTC)
		for i, b := range blocks {
			if !b.End.After(b.Start) {
				t.Fatalf("run %d: empty block %+v", run, b)
			}
			if b.End.After(windowEnd) {
				t.Fatalf("run %d: block past window end %+v", run, b)
			}
			if i == 0 {
				continue
			}
			prev := blocks[i-1]
			if !b.Start.After(prev.Start) || b.Start.Before(prev.End) {
				t.Fatalf("run %d: blocks overlap or out of order: %+v then %+v", run, prev, b)
			}
			if prev.Priority.Rank() > b.Priority.Rank() {
				t.Fatalf("run %d: %s placed before %s", run, prev.Priority, b.Priority)
			}
		}
	}
}
