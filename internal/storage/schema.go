package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements for the tables this service owns. Kept in one place so
// the admin CLI and integration tests can bootstrap a database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ingestion_tasks (
		task_id         TEXT PRIMARY KEY,
		file_count      INTEGER NOT NULL,
		total_size      BIGINT NOT NULL,
		total_pages     INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		finished_at     TIMESTAMPTZ,
		expiration_time TIMESTAMPTZ,
		api_key         TEXT NOT NULL,
		url             TEXT NOT NULL,
		status          TEXT NOT NULL,
		model           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingestion_tasks_api_key
		ON ingestion_tasks (api_key, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ingestion_files (
		file_id         TEXT PRIMARY KEY,
		task_id         TEXT NOT NULL REFERENCES ingestion_tasks (task_id),
		file_name       TEXT NOT NULL,
		file_size       BIGINT NOT NULL,
		page_count      INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		status          TEXT NOT NULL,
		input_location  TEXT NOT NULL,
		output_location TEXT NOT NULL,
		model           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_key_usage (
		api_key    TEXT NOT NULL,
		usage      BIGINT NOT NULL DEFAULT 0,
		usage_type TEXT NOT NULL,
		service    TEXT NOT NULL,
		UNIQUE (api_key, usage_type, service)
	)`,
	`CREATE TABLE IF NOT EXISTS api_key_limit (
		api_key     TEXT NOT NULL,
		usage_type  TEXT NOT NULL,
		usage_limit BIGINT NOT NULL,
		UNIQUE (api_key, usage_type)
	)`,
}

// EnsureSchema creates the service's tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
