package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docmill/extraction-engine/internal/meter"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// UsageRepository reads and administers the per-tenant usage accumulator
// and limits.
type UsageRepository struct {
	db DB
}

// NewUsageRepository creates a new usage repository.
func NewUsageRepository(db DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// TotalUsage returns the accumulated usage for a tenant key across all
// services.
func (r *UsageRepository) TotalUsage(ctx context.Context, apiKey, usageType string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(usage), 0)
		FROM api_key_usage
		WHERE api_key = $1 AND usage_type = $2
	`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, apiKey, usageType).Scan(&total); err != nil {
		return 0, fmt.Errorf("query usage: %w", err)
	}
	return total, nil
}

// Limit returns the configured limit for a tenant key. Absence of a row
// means unbounded.
func (r *UsageRepository) Limit(ctx context.Context, apiKey, usageType string) (int64, error) {
	query := `
		SELECT usage_limit FROM api_key_limit
		WHERE api_key = $1 AND usage_type = $2
		LIMIT 1
	`
	var limit int64
	err := r.db.QueryRowContext(ctx, query, apiKey, usageType).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return meter.Unlimited, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query usage limit: %w", err)
	}
	return limit, nil
}

// SetLimit upserts the limit for a tenant key.
func (r *UsageRepository) SetLimit(ctx context.Context, apiKey, usageType string, limit int64) error {
	query := `
		INSERT INTO api_key_limit (api_key, usage_type, usage_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (api_key, usage_type)
		DO UPDATE SET usage_limit = EXCLUDED.usage_limit
	`
	if _, err := r.db.ExecContext(ctx, query, apiKey, usageType, limit); err != nil {
		return fmt.Errorf("set usage limit: %w", err)
	}
	return nil
}

// TaskRepository persists tasks, files and the usage accumulator. It holds
// a *sql.DB rather than the DB interface because CreateWithUsage needs
// transactions.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateWithUsage atomically inserts the task row, the file row and the
// additive usage increment, committing only if the admission decision still
// holds against the state visible at commit time. The accumulator row for
// the tenant key is locked for the duration of the transaction, so two
// concurrent ingestions on one key serialize here and cannot jointly exceed
// the limit. Any failure rolls the whole unit back.
//
// A *meter.QuotaExceededError return means the authoritative re-check
// rejected the admission; every other error is a transaction failure.
func (r *TaskRepository) CreateWithUsage(ctx context.Context, task *Task, file *File) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Materialize the accumulator row so there is something to lock, then
	// take a row lock scoped to the tenant key.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO api_key_usage (api_key, usage, usage_type, service)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (api_key, usage_type, service) DO NOTHING
	`, task.APIKey, UsageTypePages, ServiceIngestion)
	if err != nil {
		return fmt.Errorf("init usage row: %w", err)
	}

	var current int64
	err = tx.QueryRowContext(ctx, `
		SELECT usage FROM api_key_usage
		WHERE api_key = $1 AND usage_type = $2 AND service = $3
		FOR UPDATE
	`, task.APIKey, UsageTypePages, ServiceIngestion).Scan(&current)
	if err != nil {
		return fmt.Errorf("lock usage row: %w", err)
	}

	limit := meter.Unlimited
	err = tx.QueryRowContext(ctx, `
		SELECT usage_limit FROM api_key_limit
		WHERE api_key = $1 AND usage_type = $2
		LIMIT 1
	`, task.APIKey, UsageTypePages).Scan(&limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query usage limit: %w", err)
	}

	// Authoritative admission re-check under the row lock.
	if err = meter.Decide(current, int64(file.PageCount), limit); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingestion_tasks
			(task_id, file_count, total_size, total_pages, created_at,
			 finished_at, expiration_time, api_key, url, status, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, task.TaskID, task.FileCount, task.TotalSize, task.TotalPages, task.CreatedAt,
		task.FinishedAt, task.ExpirationTime, task.APIKey, task.TaskURL,
		string(task.Status), string(task.Model))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ingestion_files
			(file_id, task_id, file_name, file_size, page_count, created_at,
			 status, input_location, output_location, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, file.FileID, file.TaskID, file.FileName, file.FileSize, file.PageCount,
		file.CreatedAt, string(file.Status), file.InputLocation, file.OutputLocation,
		string(file.Model))
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE api_key_usage SET usage = usage + $4
		WHERE api_key = $1 AND usage_type = $2 AND service = $3
	`, task.APIKey, UsageTypePages, ServiceIngestion, file.PageCount)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID retrieves a task scoped to its owning tenant key.
func (r *TaskRepository) GetByID(ctx context.Context, apiKey, taskID string) (*Task, error) {
	query := `
		SELECT task_id, file_count, total_size, total_pages, created_at,
			finished_at, expiration_time, api_key, url, status, model
		FROM ingestion_tasks
		WHERE task_id = $1 AND api_key = $2
	`
	task := &Task{}
	err := r.db.QueryRowContext(ctx, query, taskID, apiKey).Scan(
		&task.TaskID, &task.FileCount, &task.TotalSize, &task.TotalPages, &task.CreatedAt,
		&task.FinishedAt, &task.ExpirationTime, &task.APIKey, &task.TaskURL,
		&task.Status, &task.Model,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// ListByAPIKey returns one page of a tenant's tasks, newest first. Pages
// are 1-indexed.
func (r *TaskRepository) ListByAPIKey(ctx context.Context, apiKey string, page, limit int) ([]*Task, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	query := `
		SELECT task_id, file_count, total_size, total_pages, created_at,
			finished_at, expiration_time, api_key, url, status, model
		FROM ingestion_tasks
		WHERE api_key = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, apiKey, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(
			&task.TaskID, &task.FileCount, &task.TotalSize, &task.TotalPages, &task.CreatedAt,
			&task.FinishedAt, &task.ExpirationTime, &task.APIKey, &task.TaskURL,
			&task.Status, &task.Model,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Repositories bundles all repositories together.
type Repositories struct {
	Tasks *TaskRepository
	Usage *UsageRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Tasks: NewTaskRepository(db),
		Usage: NewUsageRepository(db),
	}
}
