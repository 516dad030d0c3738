package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chris/dayplan/internal/plan"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const DefaultTickCron = "*/5 * * * *"

type Config struct {
	LLMProvider    string // anthropic, openai, ollama; empty uses the keyword heuristic
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	OpenAIKey      string
	LLMModel       string
	OllamaBaseURL  string
	DiscordToken   string
	DiscordWebhook string
	DiscordOwnerID string // the only user whose messages may fall back to the webhook
	DatabasePath   string

	Window       plan.PlanWindow
	TickCron     string
	DueWindow    time.Duration
	ReminderLead time.Duration

	DefaultTimezone string
	DefaultMorning  plan.TimeOfDay
	DefaultEvening  plan.TimeOfDay

	UrgentKeywords    []string // nil keeps the built-in vocabulary
	ImportantKeywords []string

	SendRatePerMinute int
	LogLevel          string
	LogFormat         string // json or console

	// Warnings lists values that were invalid and replaced by defaults.
	// Load runs before logging is set up, so the caller reports them.
	Warnings []string
}

// ConfigDir is where the installed service keeps its configuration.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dayplan")
}

func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

// Load reads ~/.dayplan/config and ./.env, then the environment. Variables
// already set in the environment win over both files.
func Load() *Config {
	_ = godotenv.Load(ConfigFile()) // ignore error if missing
	_ = godotenv.Load()

	cfg := &Config{
		AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken:  os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		LLMModel:        os.Getenv("LLM_MODEL"),
		OllamaBaseURL:   os.Getenv("OLLAMA_BASE_URL"),
		DiscordToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook:  os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordOwnerID:  os.Getenv("DISCORD_OWNER_ID"),
		DatabasePath:    envOr("DATABASE_PATH", "./dayplan.db"),
		TickCron:        envOr("TICK_CRON", DefaultTickCron),
		DefaultTimezone: envOr("DEFAULT_TIMEZONE", "UTC"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
	}

	cfg.LLMProvider = strings.ToLower(os.Getenv("LLM_PROVIDER"))
	if cfg.LLMProvider == "" && cfg.OpenAIKey != "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.LLMProvider == "none" {
		cfg.LLMProvider = ""
	}

	cfg.Window = plan.PlanWindow{
		Start:        cfg.timeOfDay("PLAN_START", plan.DefaultWindow.Start),
		End:          cfg.timeOfDay("PLAN_END", plan.DefaultWindow.End),
		BreakMinutes: cfg.intAtLeast("PLAN_BREAK_MINUTES", plan.DefaultWindow.BreakMinutes, 0),
	}
	if cfg.Window.Start.Minutes() >= cfg.Window.End.Minutes() {
		cfg.warn("PLAN_START %s is not before PLAN_END %s, using %s-%s",
			cfg.Window.Start, cfg.Window.End, plan.DefaultWindow.Start, plan.DefaultWindow.End)
		cfg.Window.Start, cfg.Window.End = plan.DefaultWindow.Start, plan.DefaultWindow.End
	}

	cfg.DueWindow = time.Duration(cfg.intAtLeast("DUE_WINDOW_MINUTES", 10, 1)) * time.Minute
	interval, err := tickInterval(cfg.TickCron)
	if err != nil {
		cfg.warn("TICK_CRON %q: %v, using %q", cfg.TickCron, err, DefaultTickCron)
		cfg.TickCron = DefaultTickCron
		interval, _ = tickInterval(DefaultTickCron)
	}
	// A slot can only be caught if some tick lands inside its grace window.
	if cfg.DueWindow < interval {
		cfg.warn("DUE_WINDOW_MINUTES %d is shorter than the TICK_CRON interval %s, using %s",
			int(cfg.DueWindow/time.Minute), interval, interval)
		cfg.DueWindow = interval
	}
	cfg.ReminderLead = time.Duration(cfg.intAtLeast("REMINDER_LEAD_MINUTES", 10, 0)) * time.Minute
	cfg.SendRatePerMinute = cfg.intAtLeast("SEND_RATE_PER_MINUTE", 20, 0)

	cfg.DefaultMorning = cfg.timeOfDay("DEFAULT_MORNING", plan.TimeOfDay{Hour: 8})
	cfg.DefaultEvening = cfg.timeOfDay("DEFAULT_EVENING", plan.TimeOfDay{Hour: 20})
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		cfg.warn("DEFAULT_TIMEZONE %q: %v, using UTC", cfg.DefaultTimezone, err)
		cfg.DefaultTimezone = "UTC"
	}

	cfg.UrgentKeywords = splitList(os.Getenv("URGENT_KEYWORDS"))
	cfg.ImportantKeywords = splitList(os.Getenv("IMPORTANT_KEYWORDS"))
	return cfg
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) timeOfDay(key string, fallback plan.TimeOfDay) plan.TimeOfDay {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	t, err := plan.ParseTimeOfDay(v)
	if err != nil {
		c.warn("%s=%q is not HH:MM, using %s", key, v, fallback)
		return fallback
	}
	return t
}

func (c *Config) intAtLeast(key string, fallback, lo int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo {
		c.warn("%s=%q must be an integer >= %d, using %d", key, v, lo, fallback)
		return fallback
	}
	return n
}

// tickInterval is the longest gap between consecutive runs of a cron spec,
// sampled over a week of runs from a fixed Monday.
func tickInterval(spec string) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, err
	}
	start := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	var longest time.Duration
	prev := sched.Next(start)
	if prev.IsZero() {
		return 0, fmt.Errorf("schedule never runs")
	}
	for i := 0; i < 5000 && prev.Before(end); i++ {
		next := sched.Next(prev)
		if next.IsZero() {
			break
		}
		longest = max(longest, next.Sub(prev))
		prev = next
	}
	return longest, nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
