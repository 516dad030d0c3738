package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Stats is a snapshot of the store for health reports.
type Stats struct {
	Users            int
	PendingTasks     int
	UnfiredReminders int
	NextReminder     *time.Time // earliest unfired reminder at or after now
	LastEveningDay   string     // most recent evening review across users, "" if none
}

func (d *DB) Stats(now time.Time) (*Stats, error) {
	var s Stats
	var next, lastEvening sql.NullString
	err := d.conn.QueryRow(
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM tasks WHERE status = ?),
		   (SELECT COUNT(*) FROM reminders WHERE fired = 0),
		   (SELECT MIN(fire_at) FROM reminders WHERE fired = 0 AND fire_at >= ?),
		   (SELECT MAX(last_evening_sent_day) FROM user_state)`,
		string(StatusPending), formatInstant(now),
	).Scan(&s.Users, &s.PendingTasks, &s.UnfiredReminders, &next, &lastEvening)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	if next.Valid {
		t, err := parseInstant(next.String)
		if err != nil {
			return nil, err
		}
		s.NextReminder = &t
	}
	s.LastEveningDay = lastEvening.String
	return &s, nil
}
