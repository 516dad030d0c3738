package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/plan"
	"go.uber.org/zap"
)

// ErrContract means the model's reply could not be mapped one-to-one onto the
// drafts it was given.
var ErrContract = errors.New("classifier reply does not match request")

const systemPrompt = "You are a day planner. Classify each task as one of: " +
	"urgent, important, optional. Return ONLY a JSON array of strings, " +
	"same length and order as input."

// LLM asks a chat model for priorities. Any failure turns the whole batch
// into Important; results are never partially applied.
type LLM struct {
	client llm.Client
	log    *zap.SugaredLogger
}

func NewLLM(client llm.Client, log *zap.SugaredLogger) *LLM {
	return &LLM{client: client, log: log}
}

func (c *LLM) Classify(ctx context.Context, drafts []TaskDraft, day plan.Date, loc *time.Location, now time.Time) []plan.Priority {
	if len(drafts) == 0 {
		return []plan.Priority{}
	}
	out, err := c.classify(ctx, drafts, day, loc)
	if err != nil {
		c.log.Warnw("classify: falling back to important", "drafts", len(drafts), "error", err)
		return allImportant(len(drafts))
	}
	return out
}

func (c *LLM) classify(ctx context.Context, drafts []TaskDraft, day plan.Date, loc *time.Location) ([]plan.Priority, error) {
	resp, err := c.client.Chat(ctx, systemPrompt, []llm.Message{
		{Role: "user", Content: buildPrompt(drafts, day, loc)},
	})
	if err != nil {
		return nil, fmt.Errorf("asking model: %w", err)
	}
	return parsePriorities(resp.Content, len(drafts))
}

func buildPrompt(drafts []TaskDraft, day plan.Date, loc *time.Location) string {
	zone := "UTC"
	if loc != nil {
		zone = loc.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s in timezone %s.\nTasks:\n", day, zone)
	for i, d := range drafts {
		due := ""
		if d.Due != nil {
			due = d.Due.String()
		}
		fmt.Fprintf(&b, "%d. %s | est=%dm | due=%s\n", i+1, d.Title, d.EstimatedMinutes, due)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parsePriorities expects exactly a JSON array of want priority labels.
func parsePriorities(text string, want int) ([]plan.Priority, error) {
	var raw []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("%w: got %d labels for %d tasks", ErrContract, len(raw), want)
	}
	out := make([]plan.Priority, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: label %d is %T", ErrContract, i, v)
		}
		p, err := plan.ParsePriority(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContract, err)
		}
		out[i] = p
	}
	return out, nil
}

func allImportant(n int) []plan.Priority {
	out := make([]plan.Priority, n)
	for i := range out {
		out[i] = plan.Important
	}
	return out
}
