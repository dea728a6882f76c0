// Package events delivers movement notifications to interested observers.
// The durable log lives in the store; this is the in-process fan-out seam
// where an external broker publisher would plug in.
package events

import (
	"log"
	"sync"

	"github.com/sewing848/decayd/internal/amount"
	"github.com/sewing848/decayd/internal/ledger"
)

// Movement is one completed transfer or mint on a ledger. A zero From
// address means the amount originated from a mint rather than a holder.
type Movement struct {
	LedgerID   string
	From       ledger.Address
	To         ledger.Address
	Amount     uint64
	OccurredAt int64
}

// Publisher receives movement notifications. Publishing happens after the
// movement is durable; implementations must not block the caller for long.
type Publisher interface {
	Publish(m Movement)
}

// Nop discards all movements.
type Nop struct{}

func (Nop) Publish(Movement) {}

// LogPublisher writes one log line per movement.
type LogPublisher struct{}

func (LogPublisher) Publish(m Movement) {
	verb := "transfer"
	if m.From.IsZero() {
		verb = "mint"
	}
	log.Printf("%s: ledger=%s from=%s to=%s amount=%s t=%d",
		verb, m.LedgerID, m.From, m.To, amount.Format(m.Amount), m.OccurredAt)
}

// Recorder captures movements in memory for tests.
type Recorder struct {
	mu       sync.Mutex
	captured []Movement
}

func (r *Recorder) Publish(m Movement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, m)
}

// Movements returns a copy of everything published so far.
func (r *Recorder) Movements() []Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Movement, len(r.captured))
	copy(out, r.captured)
	return out
}
