package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// uint64 amount columns are stored as decimal TEXT: SQLite INTEGER is a
// signed 64-bit value and would truncate the upper half of the range.
var migrations = []migration{
	{
		Version:     1,
		Description: "ledgers: one row per ledger instance",
		SQL: `
CREATE TABLE ledgers (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    decimals    INTEGER NOT NULL DEFAULT 18,
    decay_rate  TEXT NOT NULL,
    self_addr   TEXT NOT NULL,
    total_raw   TEXT NOT NULL DEFAULT '0',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "holders: persisted per-holder balance records",
		SQL: `
CREATE TABLE holders (
    ledger_id    TEXT NOT NULL,
    address      TEXT NOT NULL,
    raw_amount   TEXT NOT NULL,
    last_updated INTEGER NOT NULL,

    PRIMARY KEY (ledger_id, address),
    FOREIGN KEY (ledger_id) REFERENCES ledgers(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     3,
		Description: "transfers: durable movement log for observers",
		SQL: `
CREATE TABLE transfers (
    id          INTEGER PRIMARY KEY,
    ledger_id   TEXT NOT NULL,
    from_addr   TEXT NOT NULL,
    to_addr     TEXT NOT NULL,
    amount      TEXT NOT NULL,
    occurred_at INTEGER NOT NULL,
    created_at  INTEGER NOT NULL,

    FOREIGN KEY (ledger_id) REFERENCES ledgers(id) ON DELETE CASCADE
);

CREATE INDEX idx_transfers_ledger   ON transfers(ledger_id);
CREATE INDEX idx_transfers_occurred ON transfers(occurred_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
