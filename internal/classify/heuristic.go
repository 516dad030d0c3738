package classify

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/chris/dayplan/internal/plan"
)

// Keyword vocabularies are regex fragments matched as whole words,
// case-insensitively.
var (
	DefaultUrgentKeywords = []string{
		"срочно", "дедлайн", "сдать", "звонок", "созвон", "встреча", "суд", "налог", "оплатить",
	}
	DefaultImportantKeywords = []string{
		"проект", "отч[её]т", "работа", "спорт", `тренировк\p{L}*`, "врач", "уч[её]ба", "плат[её]ж", "сч[её]т",
	}
)

// UrgentWithin is how close a due time has to be for a task to count as urgent.
const UrgentWithin = 180 // minutes

// Heuristic is the deterministic classifier used when no LLM is configured.
type Heuristic struct {
	urgent    *regexp.Regexp
	important *regexp.Regexp
}

func NewHeuristic() *Heuristic {
	h, _ := NewHeuristicWithKeywords(DefaultUrgentKeywords, DefaultImportantKeywords)
	return h
}

// NewHeuristicWithKeywords builds a Heuristic from custom vocabularies.
func NewHeuristicWithKeywords(urgent, important []string) (*Heuristic, error) {
	u, err := keywordRegexp(urgent)
	if err != nil {
		return nil, fmt.Errorf("urgent keywords: %w", err)
	}
	i, err := keywordRegexp(important)
	if err != nil {
		return nil, fmt.Errorf("important keywords: %w", err)
	}
	return &Heuristic{urgent: u, important: i}, nil
}

// keywordRegexp matches any of words with a Unicode-aware word boundary on
// both sides. regexp's \b only knows ASCII word characters.
func keywordRegexp(words []string) (*regexp.Regexp, error) {
	var alts []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			alts = append(alts, w)
		}
	}
	if len(alts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

func (h *Heuristic) Classify(_ context.Context, drafts []TaskDraft, day plan.Date, loc *time.Location, now time.Time) []plan.Priority {
	out := make([]plan.Priority, len(drafts))
	for i, d := range drafts {
		out[i] = h.classifyOne(d, day, loc, now)
	}
	return out
}

func (h *Heuristic) classifyOne(d TaskDraft, day plan.Date, loc *time.Location, now time.Time) plan.Priority {
	if d.Due != nil {
		due := plan.Combine(day, *d.Due, loc)
		minsLeft := int(math.Floor(due.Sub(now).Minutes()))
		if minsLeft <= UrgentWithin {
			return plan.Urgent
		}
	}
	title := strings.TrimSpace(d.Title)
	switch {
	case h.urgent != nil && h.urgent.MatchString(title):
		return plan.Urgent
	case h.important != nil && h.important.MatchString(title):
		return plan.Important
	default:
		return plan.Optional
	}
}
