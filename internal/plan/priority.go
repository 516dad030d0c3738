package plan

import (
	"fmt"
	"strings"
)

// Priority is the urgency tier of a task. Its string form is what gets stored
// and what the LLM classifier is asked to return.
type Priority string

const (
	Urgent    Priority = "urgent"
	Important Priority = "important"
	Optional  Priority = "optional"
)

// Rank orders priorities for scheduling: lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case Urgent:
		return 0
	case Important:
		return 1
	default:
		return 2
	}
}

func (p Priority) Valid() bool {
	return p == Urgent || p == Important || p == Optional
}

// ParsePriority accepts a label in any case with surrounding whitespace.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Carry returns the priority an unfinished task gets when it is rolled over to
// the next day. Escalation only goes up.
func Carry(p Priority) Priority {
	switch p {
	case Optional:
		return Important
	default:
		return Urgent
	}
}
