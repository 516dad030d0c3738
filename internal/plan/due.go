package plan

import "time"

// DefaultDueWindow is how long after its scheduled time a daily notification
// may still fire. It has to be at least the tick interval or sends get missed.
const DefaultDueWindow = 10 * time.Minute

// DueCheck is the outcome of IsDue.
type DueCheck struct {
	Due       bool
	Scheduled time.Time
}

// IsDue reports whether a once-a-day notification scheduled at `at` should
// fire at now. It is due when it hasn't been sent today and now is within
// [scheduled, scheduled+window]. A zero lastSent means never sent.
func IsDue(now time.Time, today Date, at TimeOfDay, loc *time.Location, lastSent Date, window time.Duration) DueCheck {
	scheduled := Combine(today, at, loc)
	check := DueCheck{Scheduled: scheduled}
	switch {
	case !lastSent.IsZero() && lastSent == today:
	case now.Before(scheduled):
	case now.Sub(scheduled) > window:
	default:
		check.Due = true
	}
	return check
}
