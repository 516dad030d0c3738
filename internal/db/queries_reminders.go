package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ReplaceReminders drops the user's unfired reminders and schedules rs
// instead. Re-planning a day goes through here.
func (d *DB) ReplaceReminders(userID string, rs []Reminder) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reminders WHERE user_id = ? AND fired = 0", userID); err != nil {
		return fmt.Errorf("clearing reminders for %s: %w", userID, err)
	}
	for _, r := range rs {
		_, err := tx.Exec(
			"INSERT INTO reminders (user_id, task_id, kind, message, fire_at) VALUES (?, ?, ?, ?, ?)",
			userID, r.TaskID, r.Kind, r.Message, formatInstant(r.FireAt),
		)
		if err != nil {
			return fmt.Errorf("creating reminder: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reminders: %w", err)
	}
	return nil
}

// ListDueReminders returns unfired reminders whose fire_at is at or before now.
func (d *DB) ListDueReminders(now time.Time) ([]Reminder, error) {
	rows, err := d.conn.Query(
		"SELECT id, user_id, task_id, kind, message, fire_at, fired FROM reminders WHERE fired = 0 AND fire_at <= ? ORDER BY fire_at ASC, id ASC",
		formatInstant(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListUpcomingReminders returns a user's unfired reminders after now.
func (d *DB) ListUpcomingReminders(userID string, now time.Time) ([]Reminder, error) {
	rows, err := d.conn.Query(
		"SELECT id, user_id, task_id, kind, message, fire_at, fired FROM reminders WHERE user_id = ? AND fired = 0 AND fire_at > ? ORDER BY fire_at ASC, id ASC",
		userID, formatInstant(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing upcoming reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkReminderFired marks a reminder as fired.
func (d *DB) MarkReminderFired(id int64) error {
	_, err := d.conn.Exec("UPDATE reminders SET fired = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking reminder fired: %w", err)
	}
	return nil
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var out []Reminder
	for rows.Next() {
		var r Reminder
		var fireAt string
		var fired int
		if err := rows.Scan(&r.ID, &r.UserID, &r.TaskID, &r.Kind, &r.Message, &fireAt, &fired); err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		t, err := parseInstant(fireAt)
		if err != nil {
			return nil, err
		}
		r.FireAt = t
		r.Fired = fired == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
