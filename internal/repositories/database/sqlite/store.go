package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Store wraps the embedded database handle shared by all repositories.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an opened sqlite handle.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Migrate creates the logical tables and the secondary indexes the core needs:
// by-expense lookups for splits/participants/tags/versions, by-status and
// by-record lookups for the mutation queue, by-tag filtering and by-person
// settlement lookups.
func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS expenses (
			expense_id      TEXT PRIMARY KEY,
			amount          TEXT NOT NULL,
			currency_code   TEXT NOT NULL,
			description     TEXT NOT NULL,
			category        TEXT NOT NULL DEFAULT '',
			expense_date    DATETIME NOT NULL,
			paid_by         TEXT NOT NULL,
			is_deleted      INTEGER NOT NULL DEFAULT 0,
			deleted_at      DATETIME,
			version         INTEGER NOT NULL,
			manual_rate     TEXT,
			receipt_refs    TEXT NOT NULL DEFAULT '[]',
			sync_status     TEXT NOT NULL,
			created_at      DATETIME NOT NULL,
			created_by      TEXT NOT NULL,
			last_updated_at DATETIME NOT NULL,
			last_updated_by TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expense_splits (
			split_id    TEXT PRIMARY KEY,
			expense_id  TEXT NOT NULL REFERENCES expenses(expense_id),
			person_key  TEXT NOT NULL,
			amount      TEXT NOT NULL,
			split_type  TEXT NOT NULL,
			split_value TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS expense_participants (
			expense_id TEXT NOT NULL REFERENCES expenses(expense_id),
			person_key TEXT NOT NULL,
			PRIMARY KEY (expense_id, person_key)
		)`,
		`CREATE TABLE IF NOT EXISTS expense_tags (
			expense_id TEXT NOT NULL REFERENCES expenses(expense_id),
			tag        TEXT NOT NULL,
			PRIMARY KEY (expense_id, tag)
		)`,
		`CREATE TABLE IF NOT EXISTS expense_versions (
			version_id      TEXT PRIMARY KEY,
			expense_id      TEXT NOT NULL,
			version_number  INTEGER NOT NULL,
			changed_by      TEXT NOT NULL,
			change_type     TEXT NOT NULL,
			before_snapshot TEXT,
			after_snapshot  TEXT,
			created_at      DATETIME NOT NULL,
			UNIQUE (expense_id, version_number)
		)`,
		`CREATE TABLE IF NOT EXISTS settlements (
			settlement_id   TEXT PRIMARY KEY,
			from_person     TEXT NOT NULL,
			to_person       TEXT NOT NULL,
			amount          TEXT NOT NULL,
			currency_code   TEXT NOT NULL,
			settlement_type TEXT NOT NULL,
			tag             TEXT,
			settlement_date DATETIME NOT NULL,
			created_by      TEXT NOT NULL,
			created_at      DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_operations (
			operation_id        TEXT PRIMARY KEY,
			ts                  DATETIME NOT NULL,
			entity_table        TEXT NOT NULL,
			operation_type      TEXT NOT NULL,
			record_id           TEXT NOT NULL,
			status              TEXT NOT NULL,
			retry_count         INTEGER NOT NULL DEFAULT 0,
			error_message       TEXT,
			original_values     TEXT,
			payload             TEXT NOT NULL,
			conflict_resolution TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS exchange_rate_cache (
			base_currency TEXT PRIMARY KEY,
			rates         TEXT NOT NULL,
			fetched_at    DATETIME NOT NULL,
			expires_at    DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_splits_expense ON expense_splits(expense_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_expense ON expense_participants(expense_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_expense ON expense_tags(expense_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_tag ON expense_tags(tag)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_expense ON expense_versions(expense_id, version_number)`,
		`CREATE INDEX IF NOT EXISTS idx_ops_status ON sync_operations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_ops_record ON sync_operations(entity_table, record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ops_ts ON sync_operations(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_from ON settlements(from_person)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_to ON settlements(to_person)`,
	}

	for _, m := range migrations {
		if _, err := s.DB.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
