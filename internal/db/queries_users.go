package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/chris/dayplan/internal/plan"
)

// UpsertUser creates a user or replaces their settings.
func (d *DB) UpsertUser(u User) error {
	_, err := d.conn.Exec(
		`INSERT INTO users (user_id, timezone, morning_time, evening_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   timezone = excluded.timezone,
		   morning_time = excluded.morning_time,
		   evening_time = excluded.evening_time`,
		u.ID, u.Timezone, u.MorningTime.String(), u.EveningTime.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser returns ErrNotFound for unknown users.
func (d *DB) GetUser(id string) (*User, error) {
	var u User
	var morning, evening string
	err := d.conn.QueryRow(
		"SELECT user_id, timezone, morning_time, evening_time FROM users WHERE user_id = ?", id,
	).Scan(&u.ID, &u.Timezone, &morning, &evening)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	if u.MorningTime, err = plan.ParseTimeOfDay(morning); err != nil {
		return nil, fmt.Errorf("user %s morning time: %w", id, err)
	}
	if u.EveningTime, err = plan.ParseTimeOfDay(evening); err != nil {
		return nil, fmt.Errorf("user %s evening time: %w", id, err)
	}
	return &u, nil
}

// ListUserIDs returns every registered user in registration order.
func (d *DB) ListUserIDs() ([]string, error) {
	rows, err := d.conn.Query("SELECT user_id FROM users ORDER BY created_at ASC, user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetLastSentDays returns the last days the morning and evening messages went
// out. Zero dates mean never.
func (d *DB) GetLastSentDays(userID string) (morning, evening plan.Date, err error) {
	var m, e sql.NullString
	err = d.conn.QueryRow(
		"SELECT last_morning_sent_day, last_evening_sent_day FROM user_state WHERE user_id = ?", userID,
	).Scan(&m, &e)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Date{}, plan.Date{}, nil
	}
	if err != nil {
		return plan.Date{}, plan.Date{}, fmt.Errorf("getting send state for %s: %w", userID, err)
	}
	if morning, err = scanDate(m); err != nil {
		return plan.Date{}, plan.Date{}, err
	}
	if evening, err = scanDate(e); err != nil {
		return plan.Date{}, plan.Date{}, err
	}
	return morning, evening, nil
}

func (d *DB) SetLastMorningSentDay(userID string, day plan.Date) error {
	_, err := d.conn.Exec(
		`INSERT INTO user_state (user_id, last_morning_sent_day) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET last_morning_sent_day = excluded.last_morning_sent_day`,
		userID, day.String(),
	)
	if err != nil {
		return fmt.Errorf("recording morning send for %s: %w", userID, err)
	}
	return nil
}

func (d *DB) SetLastEveningSentDay(userID string, day plan.Date) error {
	_, err := d.conn.Exec(
		`INSERT INTO user_state (user_id, last_evening_sent_day) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET last_evening_sent_day = excluded.last_evening_sent_day`,
		userID, day.String(),
	)
	if err != nil {
		return fmt.Errorf("recording evening send for %s: %w", userID, err)
	}
	return nil
}
