// Package engine wires the in-memory ledgers to the store, the clock, and
// the event publisher. Every state-changing call runs the core operation,
// persists the touched rows in one transaction, then notifies observers.
package engine

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sewing848/decayd/internal/events"
	"github.com/sewing848/decayd/internal/ledger"
	"github.com/sewing848/decayd/internal/store"
)

// ErrLedgerNotFound abstracts the standard not found error.
var ErrLedgerNotFound = errors.New("ledger not found")

// LedgerInfo is the read-only description of one ledger instance. TotalRaw
// is the live in-memory accumulator, not the last persisted value.
type LedgerInfo struct {
	ID        string
	Name      string
	Symbol    string
	Decimals  int
	DecayRate uint64
	SelfAddr  string
	TotalRaw  uint64
	CreatedAt int64
}

// Engine orchestrates ledger operations, persistence, and checkpointing.
type Engine struct {
	DB        *store.DB
	Clock     func() int64 // unix seconds; injectable for tests
	Publisher events.Publisher

	mu      sync.RWMutex
	ledgers map[string]*ledger.Ledger
	created map[string]int64
	stopCh  chan struct{}
}

// New creates an Engine over the given database. A nil publisher disables
// notifications.
func New(db *store.DB, pub events.Publisher) *Engine {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Engine{
		DB:        db,
		Clock:     func() int64 { return time.Now().Unix() },
		Publisher: pub,
		ledgers:   make(map[string]*ledger.Ledger),
		created:   make(map[string]int64),
		stopCh:    make(chan struct{}),
	}
}

// Load builds in-memory ledgers from everything persisted in the store.
func (e *Engine) Load() error {
	rows, err := e.DB.ListLedgers()
	if err != nil {
		return fmt.Errorf("load ledgers: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, row := range rows {
		self, err := ledger.ParseAddress(row.SelfAddr)
		if err != nil {
			return fmt.Errorf("ledger %s: %w", row.ID, err)
		}
		l := ledger.New(row.Name, row.Symbol, row.DecayRate, self)

		holders, err := e.DB.ListHolders(row.ID)
		if err != nil {
			return fmt.Errorf("ledger %s: %w", row.ID, err)
		}
		for _, h := range holders {
			addr, err := ledger.ParseAddress(h.Address)
			if err != nil {
				return fmt.Errorf("ledger %s holder %s: %w", row.ID, h.Address, err)
			}
			l.Restore(addr, h.RawAmount, h.LastUpdated)
		}

		e.ledgers[row.ID] = l
		e.created[row.ID] = row.CreatedAt
	}
	return nil
}

// selfAddress derives a ledger's own address deterministically from its id.
func selfAddress(id string) ledger.Address {
	sum := sha256.Sum256([]byte("decayd/ledger/" + id))
	return ledger.AddressFromBytes(sum[:ledger.AddressLen])
}

// CreateLedger registers and persists a new empty ledger. decayRate is in
// smallest units per second and is immutable afterwards.
func (e *Engine) CreateLedger(name, symbol string, decayRate uint64) (*LedgerInfo, error) {
	id := uuid.NewString()
	self := selfAddress(id)

	row := &store.LedgerRow{
		ID:        id,
		Name:      name,
		Symbol:    symbol,
		Decimals:  ledger.Decimals,
		DecayRate: decayRate,
		SelfAddr:  self.String(),
	}
	if err := e.DB.CreateLedger(row); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.ledgers[id] = ledger.New(name, symbol, decayRate, self)
	e.created[id] = row.CreatedAt
	e.mu.Unlock()

	return e.Info(id)
}

func (e *Engine) get(id string) (*ledger.Ledger, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.ledgers[id]
	if !ok {
		return nil, ErrLedgerNotFound
	}
	return l, nil
}

// Info describes one ledger, with its live supply accumulator.
func (e *Engine) Info(id string) (*LedgerInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.ledgers[id]
	if !ok {
		return nil, ErrLedgerNotFound
	}
	return &LedgerInfo{
		ID:        id,
		Name:      l.Name(),
		Symbol:    l.Symbol(),
		Decimals:  ledger.Decimals,
		DecayRate: l.DecayRate(),
		SelfAddr:  l.Self().String(),
		TotalRaw:  l.TotalRaw(),
		CreatedAt: e.created[id],
	}, nil
}

// List describes all registered ledgers, oldest first.
func (e *Engine) List() ([]LedgerInfo, error) {
	rows, err := e.DB.ListLedgers()
	if err != nil {
		return nil, err
	}
	out := make([]LedgerInfo, 0, len(rows))
	for _, row := range rows {
		info, err := e.Info(row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *info)
	}
	return out, nil
}

// Balance returns the holder's live decayed balance at the current clock
// reading. Pure read: no record is created or modified.
func (e *Engine) Balance(ledgerID string, holder ledger.Address) (uint64, error) {
	l, err := e.get(ledgerID)
	if err != nil {
		return 0, err
	}
	return l.Balance(holder, e.Clock()), nil
}

// Transfer moves amount between two holders and makes the outcome durable
// before observers hear about it.
func (e *Engine) Transfer(ledgerID string, from, to ledger.Address, amt uint64) (events.Movement, error) {
	l, err := e.get(ledgerID)
	if err != nil {
		return events.Movement{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mv, err := l.Transfer(from, to, amt, e.Clock())
	if err != nil {
		return events.Movement{}, err
	}

	rows := []store.HolderRow{holderRow(ledgerID, l, from, mv.OccurredAt)}
	if to != from {
		rows = append(rows, holderRow(ledgerID, l, to, mv.OccurredAt))
	}
	return e.saveMovement(ledgerID, l, mv, rows)
}

// Mint creates new value for a holder and makes the outcome durable before
// observers hear about it.
func (e *Engine) Mint(ledgerID string, to ledger.Address, amt uint64) (events.Movement, error) {
	l, err := e.get(ledgerID)
	if err != nil {
		return events.Movement{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mv, err := l.Mint(to, amt, e.Clock())
	if err != nil {
		return events.Movement{}, err
	}

	rows := []store.HolderRow{holderRow(ledgerID, l, to, mv.OccurredAt)}
	return e.saveMovement(ledgerID, l, mv, rows)
}

// holderRow reads a just-updated record back as a persistable row. The
// movement stamped lastUpdated to now, so the projection is the raw amount.
func holderRow(ledgerID string, l *ledger.Ledger, addr ledger.Address, now int64) store.HolderRow {
	return store.HolderRow{
		LedgerID:    ledgerID,
		Address:     addr.String(),
		RawAmount:   l.Balance(addr, now),
		LastUpdated: now,
	}
}

func (e *Engine) saveMovement(ledgerID string, l *ledger.Ledger, mv ledger.Movement, rows []store.HolderRow) (events.Movement, error) {
	tr := &store.TransferRow{
		LedgerID:   ledgerID,
		FromAddr:   mv.From.String(),
		ToAddr:     mv.To.String(),
		Amount:     mv.Amount,
		OccurredAt: mv.OccurredAt,
	}
	if err := e.DB.SaveMovement(ledgerID, l.TotalRaw(), rows, tr); err != nil {
		return events.Movement{}, fmt.Errorf("persist movement: %w", err)
	}

	out := events.Movement{
		LedgerID:   ledgerID,
		From:       mv.From,
		To:         mv.To,
		Amount:     mv.Amount,
		OccurredAt: mv.OccurredAt,
	}
	e.Publisher.Publish(out)
	return out, nil
}

// CheckpointAll brings every holder of every ledger current and persists
// the result, pruning fully decayed records. Returns the number of holder
// records written or pruned. Observable balances are unchanged.
func (e *Engine) CheckpointAll() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated := 0
	for id, l := range e.ledgers {
		now := e.Clock()
		states := l.Checkpoint(now)
		if len(states) == 0 {
			continue
		}

		rows := make([]store.HolderRow, 0, len(states))
		for _, st := range states {
			rows = append(rows, store.HolderRow{
				LedgerID:    id,
				Address:     st.Address.String(),
				RawAmount:   st.Raw,
				LastUpdated: st.LastUpdated,
			})
		}
		if err := e.DB.SaveCheckpoint(id, l.TotalRaw(), now, rows); err != nil {
			return updated, fmt.Errorf("checkpoint ledger %s: %w", id, err)
		}
		updated += len(rows)
	}
	return updated, nil
}

// StartCheckpointTimer runs a checkpoint on startup and then on the given
// interval until Stop is called.
func (e *Engine) StartCheckpointTimer(interval time.Duration) {
	// Run once at startup
	if updated, err := e.CheckpointAll(); err != nil {
		log.Printf("checkpoint error: %v", err)
	} else if updated > 0 {
		log.Printf("checkpoint: wrote %d holder records", updated)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if updated, err := e.CheckpointAll(); err != nil {
					log.Printf("checkpoint error: %v", err)
				} else if updated > 0 {
					log.Printf("checkpoint: wrote %d holder records", updated)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
}
