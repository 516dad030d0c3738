package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/classify"
	"github.com/chris/dayplan/internal/daily"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/discord"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/scheduler"
	"github.com/chris/dayplan/internal/service"
	"github.com/chris/dayplan/internal/zone"
	"go.uber.org/zap"
)

// cliUser is the user id for local CLI sessions.
const cliUser = "cli"

func main() {
	if len(os.Args) > 1 && os.Args[1] != "run" {
		if err := service.Run(os.Args[1], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()
	for _, w := range cfg.Warnings {
		log.Warnw("config: " + w)
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalw("failed to open database", "path", cfg.DatabasePath, "error", err)
	}
	defer database.Close()

	classifier, err := newClassifier(cfg, log)
	if err != nil {
		log.Fatalw("failed to create classifier", "error", err)
	}

	zones := zone.NewCache(0)
	ag := agent.New(database, classifier, zones, agent.Settings{
		Window:       cfg.Window,
		ReminderLead: cfg.ReminderLead,
		Timezone:     cfg.DefaultTimezone,
		Morning:      cfg.DefaultMorning,
		Evening:      cfg.DefaultEvening,
	}, log)

	// If Discord token is set, run as bot
	if cfg.DiscordToken != "" {
		runBot(cfg, database, ag, zones, log)
		return
	}

	// Otherwise, CLI mode
	runCLI(ag, log)
}

func newLogger(level, format string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc.Level = lvl
	return zc.Build()
}

// newClassifier picks the LLM classifier when a provider is configured and
// the keyword heuristic otherwise.
func newClassifier(cfg *config.Config, log *zap.SugaredLogger) (classify.Classifier, error) {
	if cfg.LLMProvider == "" {
		urgent, important := cfg.UrgentKeywords, cfg.ImportantKeywords
		if urgent == nil {
			urgent = classify.DefaultUrgentKeywords
		}
		if important == nil {
			important = classify.DefaultImportantKeywords
		}
		log.Infow("classifier: keyword heuristic")
		return classify.NewHeuristicWithKeywords(urgent, important)
	}

	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:       cfg.LLMProvider,
		AnthropicKey:   cfg.AnthropicKey,
		AnthropicToken: cfg.AnthropicToken,
		OpenAIKey:      cfg.OpenAIKey,
		Model:          cfg.LLMModel,
		OllamaBaseURL:  cfg.OllamaBaseURL,
	})
	if err != nil {
		return nil, err
	}
	log.Infow("classifier: llm", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return classify.NewLLM(client, log), nil
}

func runCLI(ag *agent.Agent, log *zap.SugaredLogger) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	// Check if stdin is a pipe (non-interactive)
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	prompt := func() {
		if !isPipe {
			fmt.Print("dayplan> ")
		}
	}
	prompt()

	// A /plan prompt expects the task list as one message, so piped input
	// is sent whole and interactive lines are sent one at a time.
	if isPipe {
		var b strings.Builder
		for scanner.Scan() {
			b.WriteString(scanner.Text())
			b.WriteByte('\n')
		}
		reply, err := ag.Run(ctx, cliUser, b.String())
		if err != nil {
			log.Errorw("agent error", "error", err)
			os.Exit(1)
		}
		fmt.Println(reply)
		return
	}

	// Commands go out on Enter. Anything else is buffered until a blank
	// line, so a task list can span several lines.
	var buf []string
	send := func(input string) {
		reply, err := ag.Run(ctx, cliUser, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else if reply != "" {
			fmt.Println(reply)
		}
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case len(buf) == 0 && (line == "exit" || line == "quit"):
			return
		case len(buf) == 0 && (strings.HasPrefix(line, "/") || strings.HasPrefix(line, "!")):
			send(line)
		case line != "":
			buf = append(buf, line)
			fmt.Print("     ...> ")
			continue
		case len(buf) > 0:
			send(strings.Join(buf, "\n"))
			buf = nil
		}
		prompt()
	}
}

func runBot(cfg *config.Config, database *db.DB, ag *agent.Agent, zones *zone.Cache, log *zap.SugaredLogger) {
	bot, err := discord.NewBot(cfg.DiscordToken, ag, log)
	if err != nil {
		log.Fatalw("failed to start Discord bot", "error", err)
	}
	defer bot.Close()

	sched := scheduler.New(database, cfg.DiscordWebhook, cfg.DiscordOwnerID, bot.SendDM, cfg.SendRatePerMinute, log)
	coord := daily.New(database, sched, zones, cfg.DueWindow, log)
	if err := sched.Start(cfg.TickCron, coord); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	log.Info("bot is running. Press Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down.")
}
