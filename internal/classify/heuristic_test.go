package classify

import (
	"context"
	"testing"
	"time"

	"github.com/chris/dayplan/internal/plan"
)

var (
	testDay = plan.Date{Year: 2026, Month: time.January, Day: 11}
	noon    = time.Date(2026, time.January, 11, 12, 0, 0, 0, time.UTC)
)

func due(h, m int) *plan.TimeOfDay {
	return &plan.TimeOfDay{Hour: h, Minute: m}
}

func TestHeuristic_Keywords(t *testing.T) {
	tests := []struct {
		title string
		want  plan.Priority
	}{
		{"Сдать отчет срочно", plan.Urgent},
		{"СОЗВОН с командой", plan.Urgent},
		{"Оплатить интернет", plan.Urgent},
		{"Отчёт по проекту", plan.Important},
		{"Записаться к врачу", plan.Optional}, // "врачу" is not the word "врач"
		{"Сходить к врач", plan.Important},
		{"Тренировка в зале", plan.Important},
		{"Почта", plan.Optional},
		{"Прогулка", plan.Optional},
		{"суды и пересуды", plan.Optional},
	}
	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := h.Classify(context.Background(), []TaskDraft{{Title: tt.title, EstimatedMinutes: 30}}, testDay, time.UTC, noon)
			if got[0] != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.title, got[0], tt.want)
			}
		})
	}
}

func TestHeuristic_DueTimeOverridesKeywords(t *testing.T) {
	tests := []struct {
		name string
		due  *plan.TimeOfDay
		want plan.Priority
	}{
		{"exactly three hours", due(15, 0), plan.Urgent},
		{"within three hours", due(13, 30), plan.Urgent},
		{"already past", due(9, 0), plan.Urgent},
		{"three hours and a minute", due(15, 1), plan.Optional},
		{"evening", due(20, 0), plan.Optional},
	}
	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Classify(context.Background(), []TaskDraft{{Title: "Прогулка", EstimatedMinutes: 30, Due: tt.due}}, testDay, time.UTC, noon)
			if got[0] != tt.want {
				t.Errorf("got %s, want %s", got[0], tt.want)
			}
		})
	}
}

func TestHeuristic_DueTimeUsesZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 18:00 at UTC+5 is 13:00 UTC, one hour after noon UTC.
	got := NewHeuristic().Classify(context.Background(), []TaskDraft{{Title: "Почта", Due: due(18, 0)}}, testDay, loc, noon)
	if got[0] != plan.Urgent {
		t.Errorf("got %s, want urgent", got[0])
	}
}

func TestHeuristic_PreservesOrderAndLength(t *testing.T) {
	drafts := []TaskDraft{
		{Title: "Почта"},
		{Title: "Встреча"},
		{Title: "Работа"},
	}
	got := NewHeuristic().Classify(context.Background(), drafts, testDay, time.UTC, noon)
	want := []plan.Priority{plan.Optional, plan.Urgent, plan.Important}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNewHeuristicWithKeywords(t *testing.T) {
	h, err := NewHeuristicWithKeywords([]string{"deadline", "call"}, []string{"gym"})
	if err != nil {
		t.Fatalf("NewHeuristicWithKeywords: %v", err)
	}
	got := h.Classify(context.Background(), []TaskDraft{{Title: "Call mom"}, {Title: "gym"}, {Title: "recall"}}, testDay, time.UTC, noon)
	want := []plan.Priority{plan.Urgent, plan.Important, plan.Optional}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := NewHeuristicWithKeywords([]string{"("}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestNewHeuristicWithKeywords_Empty(t *testing.T) {
	h, err := NewHeuristicWithKeywords(nil, nil)
	if err != nil {
		t.Fatalf("NewHeuristicWithKeywords: %v", err)
	}
	got := h.Classify(context.Background(), []TaskDraft{{Title: "срочно"}}, testDay, time.UTC, noon)
	if got[0] != plan.Optional {
		t.Errorf("got %s, want optional", got[0])
	}
}
