package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is kept to types both PostgreSQL and SQLite accept. JSON documents
// are stored as text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categorization_requests (
		request_id       TEXT PRIMARY KEY,
		submitter_id     TEXT NOT NULL DEFAULT '',
		format           TEXT NOT NULL,
		state            TEXT NOT NULL,
		primary_category TEXT NOT NULL DEFAULT '',
		subcategory      TEXT NOT NULL DEFAULT '',
		confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
		manual_review    BOOLEAN NOT NULL DEFAULT FALSE,
		validation_status TEXT NOT NULL DEFAULT '',
		snapshot_version TEXT NOT NULL DEFAULT '',
		error_message    TEXT NOT NULL DEFAULT '',
		payload          TEXT NOT NULL DEFAULT '',
		classification   TEXT NOT NULL DEFAULT '',
		validation       TEXT NOT NULL DEFAULT '',
		bundle           TEXT NOT NULL DEFAULT '',
		processed_at     TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categorization_requests_state
		ON categorization_requests (state, processed_at)`,
	`CREATE TABLE IF NOT EXISTS category_assignments (
		request_id        TEXT NOT NULL,
		category          TEXT NOT NULL,
		subcategory       TEXT NOT NULL,
		confidence        DOUBLE PRECISION NOT NULL,
		assignment_type   TEXT NOT NULL,
		relationship      TEXT NOT NULL,
		validation_status TEXT NOT NULL,
		target_table      TEXT NOT NULL,
		PRIMARY KEY (request_id, category)
	)`,
	`CREATE TABLE IF NOT EXISTS validation_rules (
		rule_id    TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		field      TEXT NOT NULL,
		field_type TEXT NOT NULL DEFAULT '',
		rule_name  TEXT NOT NULL DEFAULT '',
		params     TEXT NOT NULL DEFAULT '{}',
		priority   INTEGER NOT NULL DEFAULT 0,
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_validation_rules_category
		ON validation_rules (category)`,
}

// Migrate creates the categorizer tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
