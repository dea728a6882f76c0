package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// LedgerRow is a persisted ledger instance.
type LedgerRow struct {
	ID        string
	Name      string
	Symbol    string
	Decimals  int
	DecayRate uint64
	SelfAddr  string
	TotalRaw  uint64
	CreatedAt int64
	UpdatedAt int64
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// CreateLedger inserts a new ledger row and stamps its timestamps.
func (db *DB) CreateLedger(row *LedgerRow) error {
	now := time.Now().Unix()
	_, err := db.Exec(`
		INSERT INTO ledgers (id, name, symbol, decimals, decay_rate, self_addr, total_raw, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Name, row.Symbol, row.Decimals,
		formatUint(row.DecayRate), row.SelfAddr, formatUint(row.TotalRaw), now, now)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	return nil
}

func scanLedger(scan func(...any) error) (*LedgerRow, error) {
	var row LedgerRow
	var decayRate, totalRaw string
	err := scan(&row.ID, &row.Name, &row.Symbol, &row.Decimals,
		&decayRate, &row.SelfAddr, &totalRaw, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if row.DecayRate, err = parseUint(decayRate); err != nil {
		return nil, err
	}
	if row.TotalRaw, err = parseUint(totalRaw); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetLedger returns a ledger row by id, or nil if not found.
func (db *DB) GetLedger(id string) (*LedgerRow, error) {
	row, err := scanLedger(db.QueryRow(`
		SELECT id, name, symbol, decimals, decay_rate, self_addr, total_raw, created_at, updated_at
		FROM ledgers WHERE id = ?
	`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return row, nil
}

// ListLedgers returns all ledger rows, oldest first.
func (db *DB) ListLedgers() ([]LedgerRow, error) {
	rows, err := db.Query(`
		SELECT id, name, symbol, decimals, decay_rate, self_addr, total_raw, created_at, updated_at
		FROM ledgers ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		row, err := scanLedger(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}
