package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task types. Text tasks paste Message verbatim; image tasks treat Message
// as the topic of a random image fetch.
const (
	TaskTypeText  = "text"
	TaskTypeImage = "image"
)

// ScheduledTask is a recurring send into the monitored chat, managed over
// the HTTP API and executed by the scheduler.
type ScheduledTask struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	CronExpr  string     `json:"cron_expr"`
	Message   string     `json:"message"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
}

type ScheduledTaskRepo struct {
	db *DB
}

func NewScheduledTaskRepo(db *DB) *ScheduledTaskRepo {
	return &ScheduledTaskRepo{db: db}
}

func (r *ScheduledTaskRepo) Create(ctx context.Context, task *ScheduledTask) error {
	task.ID = uuid.New().String()
	if task.Type == "" {
		task.Type = TaskTypeText
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO scheduled_tasks (id, name, task_type, cron_expr, message, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		task.ID, task.Name, task.Type, task.CronExpr, task.Message, task.Enabled, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled task: %w", err)
	}

	return nil
}

func (r *ScheduledTaskRepo) GetByID(ctx context.Context, id string) (*ScheduledTask, error) {
	query := `
		SELECT id, name, task_type, cron_expr, message, enabled, created_at, updated_at, last_run
		FROM scheduled_tasks WHERE id = ?`

	task, err := scanTask(r.db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled task: %w", err)
	}

	return task, nil
}

func (r *ScheduledTaskRepo) List(ctx context.Context) ([]*ScheduledTask, error) {
	return r.list(ctx, `
		SELECT id, name, task_type, cron_expr, message, enabled, created_at, updated_at, last_run
		FROM scheduled_tasks ORDER BY created_at`)
}

func (r *ScheduledTaskRepo) ListEnabled(ctx context.Context) ([]*ScheduledTask, error) {
	return r.list(ctx, `
		SELECT id, name, task_type, cron_expr, message, enabled, created_at, updated_at, last_run
		FROM scheduled_tasks WHERE enabled = 1 ORDER BY created_at`)
}

func (r *ScheduledTaskRepo) list(ctx context.Context, query string) ([]*ScheduledTask, error) {
	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func (r *ScheduledTaskRepo) Update(ctx context.Context, task *ScheduledTask) error {
	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE scheduled_tasks
		SET name = ?, task_type = ?, cron_expr = ?, message = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.conn.ExecContext(ctx, query,
		task.Name, task.Type, task.CronExpr, task.Message, task.Enabled, task.UpdatedAt, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update scheduled task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled task not found: %s", task.ID)
	}

	return nil
}

func (r *ScheduledTaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scheduled task not found: %s", id)
	}

	return nil
}

func (r *ScheduledTaskRepo) UpdateLastRun(ctx context.Context, id string, lastRun time.Time) error {
	query := `UPDATE scheduled_tasks SET last_run = ? WHERE id = ?`

	if _, err := r.db.conn.ExecContext(ctx, query, lastRun.UTC(), id); err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*ScheduledTask, error) {
	task := &ScheduledTask{}
	var lastRun sql.NullTime

	err := row.Scan(&task.ID, &task.Name, &task.Type, &task.CronExpr, &task.Message,
		&task.Enabled, &task.CreatedAt, &task.UpdatedAt, &lastRun)
	if err != nil {
		return nil, err
	}

	if lastRun.Valid {
		task.LastRun = &lastRun.Time
	}

	return task, nil
}
