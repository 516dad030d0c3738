// Package service runs dayplan as a per-user launchd agent on macOS and
// reports on the installed agent's health.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/db"
	"github.com/joho/godotenv"
)

const (
	label   = "com.dayplan.agent"
	binDest = "/usr/local/bin/dayplan"
)

const usage = `usage: dayplan [command]

  run        run the bot (default); CLI mode without DISCORD_BOT_TOKEN
  install    install the binary and a launchd agent
  uninstall  remove the launchd agent and binary
  start      start the agent
  stop       stop the agent
  restart    restart the agent
  status     show launchd status and planner health
  logs       follow the agent logs`

// ErrNoBotToken stops an install that would leave launchd restarting a
// process with nothing to do: without a bot token dayplan is a CLI.
var ErrNoBotToken = errors.New("DISCORD_BOT_TOKEN is not set")

// Run executes a daemon management subcommand.
func Run(command string, out io.Writer) error {
	switch command {
	case "install":
		return Install(out)
	case "uninstall":
		return Uninstall(out)
	case "start":
		return launchctl("start", label)
	case "stop":
		return launchctl("stop", label)
	case "restart":
		_ = launchctl("stop", label)
		return launchctl("start", label)
	case "status":
		return Status(out)
	case "logs":
		return Logs(out)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

func plistPath() string {
	return filepath.Join(homeDir(), "Library", "LaunchAgents", label+".plist")
}

func stdoutLogPath() string {
	return filepath.Join(homeDir(), "Library", "Logs", "dayplan-stdout.log")
}

func stderrLogPath() string {
	return filepath.Join(homeDir(), "Library", "Logs", "dayplan-stderr.log")
}

// Install copies the binary to /usr/local/bin, makes sure ~/.dayplan/config
// exists and names a bot token, then writes and loads the launchd plist.
func Install(out io.Writer) error {
	if err := installBinary(out); err != nil {
		return err
	}
	if err := seedConfig(out, ".env"); err != nil {
		return err
	}
	if err := checkConfig(config.ConfigFile()); err != nil {
		return err
	}

	plist, err := renderPlist(config.ConfigDir())
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}
	if _, err := os.Stat(plistPath()); err == nil {
		_ = launchctl("unload", plistPath())
	}
	if err := os.MkdirAll(filepath.Dir(plistPath()), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(plistPath(), []byte(plist), 0644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	fmt.Fprintf(out, "wrote plist to %s\n", plistPath())

	if err := launchctl("load", plistPath()); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	fmt.Fprintln(out, "service loaded; the daily cycle starts on login")
	return nil
}

func checkConfig(file string) error {
	env, err := godotenv.Read(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	if strings.TrimSpace(env["DISCORD_BOT_TOKEN"]) == "" {
		return fmt.Errorf("%w in %s; set it and run install again", ErrNoBotToken, file)
	}
	return nil
}

func installBinary(out io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	data, err := os.ReadFile(exe)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(binDest), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(binDest), err)
	}
	if err := os.WriteFile(binDest, data, 0755); err != nil {
		return fmt.Errorf("copying binary to %s: %w", binDest, err)
	}
	fmt.Fprintf(out, "installed binary to %s\n", binDest)
	return nil
}

// seedConfig creates ~/.dayplan/config from envFile, or from a commented
// template of every setting when envFile is missing. An existing config is
// left alone.
func seedConfig(out io.Writer, envFile string) error {
	file := config.ConfigFile()
	if _, err := os.Stat(file); err == nil {
		fmt.Fprintf(out, "config already exists at %s\n", file)
		return nil
	}
	if err := os.MkdirAll(config.ConfigDir(), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := os.ReadFile(envFile)
	source := envFile
	if err != nil {
		data, source = []byte(configTemplate), "template"
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "seeded config from %s -> %s\n", source, file)
	return nil
}

const configTemplate = `# dayplan settings. Values already in the environment win.
DISCORD_BOT_TOKEN=
# Fallback channel for DISCORD_OWNER_ID's messages when a DM fails.
DISCORD_WEBHOOK_URL=
DISCORD_OWNER_ID=
# Relative paths are under ~/.dayplan.
DATABASE_PATH=dayplan.db

# Empty uses the keyword heuristic; anthropic, openai or ollama use a model.
LLM_PROVIDER=
# ANTHROPIC_API_KEY=
# OPENAI_API_KEY=
# LLM_MODEL=

PLAN_START=09:00
PLAN_END=18:00
PLAN_BREAK_MINUTES=5
TICK_CRON=*/5 * * * *
DUE_WINDOW_MINUTES=10
REMINDER_LEAD_MINUTES=10

DEFAULT_TIMEZONE=UTC
DEFAULT_MORNING=08:00
DEFAULT_EVENING=20:00
LOG_FORMAT=console
`

// databasePath resolves DATABASE_PATH the way the agent sees it: launchd
// starts it in ~/.dayplan, so relative paths land there.
func databasePath(env map[string]string) string {
	p := env["DATABASE_PATH"]
	if p == "" {
		p = "dayplan.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(config.ConfigDir(), p)
}

// Uninstall unloads and removes the plist and the binary. The config and
// database stay.
func Uninstall(out io.Writer) error {
	if _, err := os.Stat(plistPath()); err == nil {
		if err := launchctl("unload", plistPath()); err != nil {
			fmt.Fprintf(out, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(plistPath()); err != nil {
			return fmt.Errorf("removing plist: %w", err)
		}
		fmt.Fprintf(out, "removed %s\n", plistPath())
	}
	if _, err := os.Stat(binDest); err == nil {
		if err := os.Remove(binDest); err != nil {
			return fmt.Errorf("removing binary: %w", err)
		}
		fmt.Fprintf(out, "removed %s\n", binDest)
	}
	fmt.Fprintf(out, "uninstalled; config and data remain in %s\n", config.ConfigDir())
	return nil
}

// Status prints launchd's view of the agent followed by planner health.
func Status(out io.Writer) error {
	cmd := exec.Command("launchctl", "list", label)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(out, "service is not loaded")
	}
	env, _ := godotenv.Read(config.ConfigFile())
	return writeHealth(out, databasePath(env), time.Now())
}

func writeHealth(out io.Writer, dbPath string, now time.Time) error {
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(out, "database: %s (not created yet)\n", dbPath)
		return nil
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	st, err := database.Stats(now)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "database: %s\n", dbPath)
	fmt.Fprintf(out, "users: %d\npending tasks: %d\nunfired reminders: %d\n", st.Users, st.PendingTasks, st.UnfiredReminders)
	if st.NextReminder != nil {
		fmt.Fprintf(out, "next reminder: %s\n", st.NextReminder.Format(time.RFC3339))
	}
	last := st.LastEveningDay
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(out, "last evening review: %s\n", last)
	return nil
}

// Logs follows both agent log files.
func Logs(out io.Writer) error {
	cmd := exec.Command("tail", "-f", stdoutLogPath(), stderrLogPath())
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

func launchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ThrottleInterval keeps launchd from restarting a crashing agent in a
// tight loop.
var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>run</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>ThrottleInterval</key>
	<integer>30</integer>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

func renderPlist(dir string) (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Label, BinPath, WorkDir, StdoutLog, StderrLog string
	}{label, binDest, dir, stdoutLogPath(), stderrLogPath()})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
