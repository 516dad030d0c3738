package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chris/dayplan/internal/plan"
)

const taskColumns = "id, user_id, title, created_at, day, estimated_minutes, due_time, priority, status"

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// AddTask inserts a pending task and returns its ID.
func (d *DB) AddTask(t NewTask) (int64, error) {
	return addTask(d.conn, t)
}

func addTask(e execer, t NewTask) (int64, error) {
	res, err := e.Exec(
		`INSERT INTO tasks (user_id, title, created_at, day, estimated_minutes, due_time, priority, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.CreatedAt.Format(time.RFC3339), t.Day.String(),
		t.EstimatedMinutes, nullTime(t.Due), string(t.Priority), string(StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("adding task: %w", err)
	}
	return res.LastInsertId()
}

// AddTasks inserts tasks in one transaction: either all of them are stored
// or none are. IDs are returned in input order.
func (d *DB) AddTasks(tasks []NewTask) ([]int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		id, err := addTask(tx, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tasks: %w", err)
	}
	return ids, nil
}

// ReplaceTasksForDay deletes the user's tasks for day and inserts tasks in
// their place, atomically. IDs are returned in input order.
func (d *DB) ReplaceTasksForDay(userID string, day plan.Date, tasks []NewTask) ([]int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tasks WHERE user_id = ? AND day = ?", userID, day.String()); err != nil {
		return nil, fmt.Errorf("clearing tasks for %s: %w", day, err)
	}
	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		id, err := addTask(tx, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing tasks: %w", err)
	}
	return ids, nil
}

// ListTasks returns a user's tasks for a day in id order. An empty status
// returns every status.
func (d *DB) ListTasks(userID string, day plan.Date, status TaskStatus) ([]Task, error) {
	q := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ? AND day = ?"
	args := []any{userID, day.String()}
	if status != "" {
		q += " AND status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY id ASC"

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskStatus changes the status of one of the user's tasks.
func (d *DB) UpdateTaskStatus(userID string, id int64, status TaskStatus) error {
	res, err := d.conn.Exec("UPDATE tasks SET status = ? WHERE user_id = ? AND id = ?", string(status), userID, id)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanTask(rows *sql.Rows) (Task, error) {
	var t Task
	var createdAt, day, priority, status string
	var due sql.NullString
	if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &createdAt, &day, &t.EstimatedMinutes, &due, &priority, &status); err != nil {
		return Task{}, fmt.Errorf("scanning task: %w", err)
	}
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Task{}, fmt.Errorf("task %d created_at: %w", t.ID, err)
	}
	if t.Day, err = plan.ParseDate(day); err != nil {
		return Task{}, fmt.Errorf("task %d: %w", t.ID, err)
	}
	if t.Due, err = scanTime(due); err != nil {
		return Task{}, fmt.Errorf("task %d: %w", t.ID, err)
	}
	if t.Priority, err = plan.ParsePriority(priority); err != nil {
		return Task{}, fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.Status = TaskStatus(status)
	return t, nil
}
