// Package parse turns free-text task lines into task drafts.
//
// A line may carry a due time as "@HH:MM" and any number of durations such as
// "30m", "45 min", "2h" or "1 час"; durations are summed and default to 30
// minutes. Everything else is the title.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chris/dayplan/internal/classify"
	"github.com/chris/dayplan/internal/plan"
)

const DefaultMinutes = 30

// MaxMinutes caps a line's total duration. Nothing longer fits in a day.
const MaxMinutes = 24 * 60

// Word boundaries are spelled out because regexp's \b is ASCII-only.
var (
	reMinutes = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])(\d+)\s*(?:min|мин|m)($|[^\p{L}\p{N}_])`)
	reHours   = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])(\d+)\s*(?:hr|час|h|ч)($|[^\p{L}\p{N}_])`)
	reDue     = regexp.MustCompile(`(?:^|\s)@(\d{1,2}):(\d{2})($|[^\p{L}\p{N}_])`)
	reSpaces  = regexp.MustCompile(`\s+`)
)

// Line parses one task line. ok is false for blank lines and lines that are
// nothing but a time and duration.
func Line(line string) (classify.TaskDraft, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return classify.TaskDraft{}, false
	}

	var due *plan.TimeOfDay
	if m := reDue.FindStringSubmatch(raw); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if t := (plan.TimeOfDay{Hour: hh, Minute: mm}); t.Valid() {
			due = &t
		}
		for reDue.MatchString(raw) {
			raw = reDue.ReplaceAllString(raw, " $3")
		}
		raw = strings.TrimSpace(raw)
	}

	minutes := 0
	for _, m := range findAll(reMinutes, raw) {
		minutes = min(minutes+m, MaxMinutes)
	}
	for _, h := range findAll(reHours, raw) {
		minutes = min(minutes+min(h, MaxMinutes/60)*60, MaxMinutes)
	}

	title := replaceAll(reMinutes, raw)
	title = replaceAll(reHours, title)
	title = reSpaces.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -\t")

	if title == "" {
		return classify.TaskDraft{}, false
	}
	if minutes <= 0 {
		minutes = DefaultMinutes
	}
	return classify.TaskDraft{Title: title, EstimatedMinutes: minutes, Due: due}, true
}

// Lines parses a multi-line message, dropping lines that yield no task.
func Lines(text string) []classify.TaskDraft {
	var out []classify.TaskDraft
	for _, l := range strings.Split(text, "\n") {
		if d, ok := Line(l); ok {
			out = append(out, d)
		}
	}
	return out
}

// The boundary groups consume the separator on each side, so adjacent
// matches like "1h 30m" need repeated passes.
func findAll(re *regexp.Regexp, s string) []int {
	var out []int
	for {
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return out
		}
		n, err := strconv.Atoi(s[loc[4]:loc[5]])
		if err != nil {
			n = MaxMinutes // too many digits for an int
		}
		out = append(out, min(n, MaxMinutes))
		s = s[:loc[0]] + s[loc[2]:loc[3]] + " " + s[loc[6]:loc[7]] + s[loc[1]:]
	}
}

func replaceAll(re *regexp.Regexp, s string) string {
	for re.MatchString(s) {
		s = re.ReplaceAllString(s, "$1 $3")
	}
	return s
}
