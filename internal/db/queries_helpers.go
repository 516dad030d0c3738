package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chris/dayplan/internal/plan"
)

// sqliteTime matches datetime('now') so stored instants compare as strings.
const sqliteTime = "2006-01-02 15:04:05"

func formatInstant(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTime, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing instant %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *plan.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func scanTime(s sql.NullString) (*plan.TimeOfDay, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := plan.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanDate(s sql.NullString) (plan.Date, error) {
	if !s.Valid || s.String == "" {
		return plan.Date{}, nil
	}
	return plan.ParseDate(s.String)
}
