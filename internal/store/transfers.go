package store

import (
	"database/sql"
	"fmt"
	"time"
)

// TransferRow is one entry in the durable movement log. A zero from
// address marks minted value.
type TransferRow struct {
	ID         int64
	LedgerID   string
	FromAddr   string
	ToAddr     string
	Amount     uint64
	OccurredAt int64
	CreatedAt  int64
}

func insertTransfer(tx *sql.Tx, tr *TransferRow) error {
	now := time.Now().Unix()
	result, err := tx.Exec(`
		INSERT INTO transfers (ledger_id, from_addr, to_addr, amount, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tr.LedgerID, tr.FromAddr, tr.ToAddr, formatUint(tr.Amount), tr.OccurredAt, now)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	tr.ID, _ = result.LastInsertId()
	tr.CreatedAt = now
	return nil
}

// ListTransfers returns a ledger's movement log, newest first, capped at
// limit entries (or all entries when limit <= 0).
func (db *DB) ListTransfers(ledgerID string, limit int) ([]TransferRow, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := db.Query(`
		SELECT id, ledger_id, from_addr, to_addr, amount, occurred_at, created_at
		FROM transfers WHERE ledger_id = ?
		ORDER BY id DESC LIMIT ?
	`, ledgerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []TransferRow
	for rows.Next() {
		var tr TransferRow
		var amount string
		if err := rows.Scan(&tr.ID, &tr.LedgerID, &tr.FromAddr, &tr.ToAddr,
			&amount, &tr.OccurredAt, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if tr.Amount, err = parseUint(amount); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
