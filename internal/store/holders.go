package store

import (
	"database/sql"
	"fmt"
)

// HolderRow is a persisted per-holder balance record.
type HolderRow struct {
	LedgerID    string
	Address     string
	RawAmount   uint64
	LastUpdated int64
}

func upsertHolder(tx *sql.Tx, h HolderRow) error {
	_, err := tx.Exec(`
		INSERT INTO holders (ledger_id, address, raw_amount, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ledger_id, address) DO UPDATE SET
			raw_amount = excluded.raw_amount,
			last_updated = excluded.last_updated
	`, h.LedgerID, h.Address, formatUint(h.RawAmount), h.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert holder %s: %w", h.Address, err)
	}
	return nil
}

// GetHolder returns one holder record, or nil if the holder has never been
// persisted for this ledger.
func (db *DB) GetHolder(ledgerID, address string) (*HolderRow, error) {
	var h HolderRow
	var raw string
	err := db.QueryRow(`
		SELECT ledger_id, address, raw_amount, last_updated
		FROM holders WHERE ledger_id = ? AND address = ?
	`, ledgerID, address).Scan(&h.LedgerID, &h.Address, &raw, &h.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holder: %w", err)
	}
	if h.RawAmount, err = parseUint(raw); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHolders returns all persisted holder records for a ledger.
func (db *DB) ListHolders(ledgerID string) ([]HolderRow, error) {
	rows, err := db.Query(`
		SELECT ledger_id, address, raw_amount, last_updated
		FROM holders WHERE ledger_id = ?
	`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var out []HolderRow
	for rows.Next() {
		var h HolderRow
		var raw string
		if err := rows.Scan(&h.LedgerID, &h.Address, &raw, &h.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		if h.RawAmount, err = parseUint(raw); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SaveMovement persists the outcome of one transfer or mint atomically:
// the touched holder records, the ledger's supply accumulator, and the
// movement log entry all land in a single transaction.
func (db *DB) SaveMovement(ledgerID string, totalRaw uint64, holders []HolderRow, tr *TransferRow) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin movement: %w", err)
	}

	for _, h := range holders {
		if err := upsertHolder(tx, h); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := updateLedgerTotal(tx, ledgerID, totalRaw, tr.OccurredAt); err != nil {
		tx.Rollback()
		return err
	}

	if err := insertTransfer(tx, tr); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// SaveCheckpoint persists a brought-current snapshot of a ledger's holders.
// Zero-balance records are deleted rather than stored: a missing row reads
// back as a zero balance, so pruning never changes observable state.
func (db *DB) SaveCheckpoint(ledgerID string, totalRaw uint64, updatedAt int64, holders []HolderRow) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin checkpoint: %w", err)
	}

	for _, h := range holders {
		if h.RawAmount == 0 {
			if _, err := tx.Exec(
				"DELETE FROM holders WHERE ledger_id = ? AND address = ?",
				h.LedgerID, h.Address,
			); err != nil {
				tx.Rollback()
				return fmt.Errorf("prune holder %s: %w", h.Address, err)
			}
			continue
		}
		if err := upsertHolder(tx, h); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := updateLedgerTotal(tx, ledgerID, totalRaw, updatedAt); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func updateLedgerTotal(tx *sql.Tx, ledgerID string, totalRaw uint64, updatedAt int64) error {
	_, err := tx.Exec(
		"UPDATE ledgers SET total_raw = ?, updated_at = ? WHERE id = ?",
		formatUint(totalRaw), updatedAt, ledgerID,
	)
	if err != nil {
		return fmt.Errorf("update ledger total: %w", err)
	}
	return nil
}
