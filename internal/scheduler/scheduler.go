// Package scheduler drives the daily cycle on a cron schedule, fires block
// reminders, and delivers outgoing messages.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chris/dayplan/internal/daily"
	"github.com/chris/dayplan/internal/db"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReminderInterval is how often due block reminders are polled.
const ReminderInterval = time.Minute

var ErrNoDelivery = errors.New("no delivery method available")

type Scheduler struct {
	cron       *cron.Cron
	db         *db.DB
	webhookURL string
	ownerID    string
	dmSend     func(userID, content string) error
	log        *zap.SugaredLogger
	now        func() time.Time

	perMinute int
	limMu     sync.Mutex
	limiters  *expirable.LRU[string, *rate.Limiter]

	stop chan struct{}
}

// New creates a scheduler. The webhook posts to a shared channel, so it is
// only a fallback for ownerID's messages; other users are reached by DM or
// not at all. perMinute caps messages per user; zero disables the cap.
func New(database *db.DB, webhookURL, ownerID string, dmSend func(userID, content string) error, perMinute int, log *zap.SugaredLogger) *Scheduler {
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Desugar()))
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLog)), cron.WithLogger(cronLog)),
		db:         database,
		webhookURL: webhookURL,
		ownerID:    ownerID,
		dmSend:     dmSend,
		log:        log,
		now:        time.Now,
		perMinute:  perMinute,
		limiters:   expirable.NewLRU[string, *rate.Limiter](1024, nil, time.Hour),
		stop:       make(chan struct{}),
	}
}

// Start runs coord on the cron spec and begins polling reminders.
func (s *Scheduler) Start(spec string, coord *daily.Coordinator) error {
	if _, err := s.cron.AddFunc(spec, func() { s.runTick(coord) }); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", spec, err)
	}
	s.cron.Start()

	go func() {
		t := time.NewTicker(ReminderInterval)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C:
				s.fireReminders(context.Background())
			}
		}
	}()

	s.log.Infow("scheduler started", "tick", spec)
	return nil
}

// Stop halts both loops and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runTick(coord *daily.Coordinator) {
	results := coord.Tick(context.Background(), s.now())
	var sent, failed int
	for _, r := range results {
		if r.MorningSent {
			sent++
		}
		if r.EveningSent {
			sent++
		}
		if r.Err != nil {
			failed++
		}
	}
	s.log.Debugw("scheduler[tick]: completed", "users", len(results), "sent", sent, "failed", failed)
}

// fireReminders delivers every due reminder once. A reminder is marked fired
// before delivery, so a failed send is not retried.
func (s *Scheduler) fireReminders(ctx context.Context) {
	due, err := s.db.ListDueReminders(s.now())
	if err != nil {
		s.log.Errorw("scheduler: listing reminders", "error", err)
		return
	}
	for _, r := range due {
		if err := s.db.MarkReminderFired(r.ID); err != nil {
			s.log.Errorw("scheduler: marking reminder fired", "reminder", r.ID, "error", err)
			continue
		}
		if err := s.Send(ctx, r.UserID, r.Message); err != nil {
			s.log.Warnw("scheduler: reminder delivery failed", "reminder", r.ID, "user", r.UserID, "error", err)
			continue
		}
		s.log.Infow("scheduler: fired reminder", "reminder", r.ID, "user", r.UserID, "kind", r.Kind)
	}
}

// Send delivers text to a user by Discord DM. The owner's messages fall back
// to the webhook. It blocks while the user's rate limit is exhausted.
func (s *Scheduler) Send(ctx context.Context, userID, text string) error {
	if err := s.limiter(userID).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit for %s: %w", userID, err)
	}

	var dmErr error
	if s.dmSend != nil {
		if dmErr = s.dmSend(userID, text); dmErr == nil {
			return nil
		}
		s.log.Warnw("scheduler: DM send failed", "user", userID, "error", dmErr)
	}
	if s.webhookURL != "" && s.ownerID != "" && userID == s.ownerID {
		return postWebhook(ctx, s.webhookURL, text)
	}
	if dmErr != nil {
		return fmt.Errorf("sending DM to %s: %w", userID, dmErr)
	}
	return ErrNoDelivery
}

func (s *Scheduler) limiter(userID string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()
	if l, ok := s.limiters.Get(userID); ok {
		return l
	}
	l := rate.NewLimiter(rate.Inf, 0)
	if s.perMinute > 0 {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute)
	}
	s.limiters.Add(userID, l)
	return l
}

func postWebhook(ctx context.Context, url, content string) error {
	payload := map[string]string{"content": content}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
