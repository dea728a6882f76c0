package ledger

import (
	"errors"
	"math"
	"math/bits"
	"sync"
)

// Decimals is the fixed display precision for all ledgers: amounts are
// integers counted in 10^-18 units, matching the usual 18-decimal token
// convention.
const Decimals = 18

var (
	// ErrInvalidRecipient occurs when the target of a transfer or mint is
	// the origination sentinel or the ledger's own address.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInsufficientBalance occurs when a transfer exceeds the sender's
	// current decayed balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOverflow occurs when a mint would push total supply past the
	// representable range.
	ErrOverflow = errors.New("total supply overflow")
)

// Movement describes one completed transfer or mint. A zero From address
// means the amount was newly minted rather than moved from a holder.
type Movement struct {
	From       Address
	To         Address
	Amount     uint64
	OccurredAt int64
}

// HolderState is a snapshot of one holder's stored record.
type HolderState struct {
	Address     Address
	Raw         uint64
	LastUpdated int64
}

type holderRecord struct {
	raw         uint64
	lastUpdated int64
}

// Ledger tracks per-holder balances that decay continuously at a fixed
// rate. Stored raw amounts are only ever presented to callers after the
// decay projection for the elapsed time has been applied.
//
// All methods are safe for concurrent use: mutations serialize on an
// internal lock, reads see consistent snapshots. Callers supply the clock
// as a unix-seconds value, which must not go backwards for a given
// instance.
type Ledger struct {
	mu sync.RWMutex

	name      string
	symbol    string
	decayRate uint64 // smallest units per second, immutable
	self      Address

	totalRaw uint64
	holders  map[Address]holderRecord
}

// New creates an empty ledger. decayRate is in smallest units per second.
// self is the ledger's own identity and is rejected as a recipient.
func New(name, symbol string, decayRate uint64, self Address) *Ledger {
	return &Ledger{
		name:      name,
		symbol:    symbol,
		decayRate: decayRate,
		self:      self,
		holders:   make(map[Address]holderRecord),
	}
}

// Name returns the ledger's display name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the ledger's ticker symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// DecayRate returns the immutable decay rate in smallest units per second.
func (l *Ledger) DecayRate() uint64 { return l.decayRate }

// Self returns the ledger's own address.
func (l *Ledger) Self() Address { return l.self }

// TotalRaw returns the supply accumulator: the sum of all stored raw
// amounts. It over-counts live supply by whatever decay has accrued since
// each holder's last update.
func (l *Ledger) TotalRaw() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalRaw
}

// project applies decay to a record without storing anything. A clock
// reading at or before lastUpdated leaves the raw amount untouched.
func (l *Ledger) project(rec holderRecord, now int64) uint64 {
	if now <= rec.lastUpdated || rec.raw == 0 {
		return rec.raw
	}
	hi, decay := bits.Mul64(l.decayRate, uint64(now-rec.lastUpdated))
	if hi != 0 || decay >= rec.raw {
		return 0
	}
	return rec.raw - decay
}

// Balance returns the holder's live decayed balance at now. It is a pure
// read: unknown holders yield 0 and no record is created or modified.
func (l *Ledger) Balance(holder Address, now int64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.project(l.holders[holder], now)
}

// Update brings the holder's stored record current: the decayed projection
// becomes the new raw amount, lastUpdated becomes now, and the supply
// accumulator absorbs the difference. Returns the brought-current amount.
// Calling Update twice at the same now is a no-op the second time.
func (l *Ledger) Update(holder Address, now int64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updateLocked(holder, now)
}

func (l *Ledger) updateLocked(holder Address, now int64) uint64 {
	rec := l.holders[holder]
	proj := l.project(rec, now)
	l.totalRaw -= rec.raw - proj
	l.holders[holder] = holderRecord{raw: proj, lastUpdated: now}
	return proj
}

// checkRecipient enforces the shared recipient rules for Transfer and Mint.
func (l *Ledger) checkRecipient(to Address) error {
	if to.IsZero() || to == l.self {
		return ErrInvalidRecipient
	}
	return nil
}

// Transfer moves amount from one holder to another at now, applying any
// outstanding decay to both parties first. The call is all-or-nothing: on
// error no record changes, not even the decay refresh. A self-transfer is
// a plain decay refresh of the holder.
func (l *Ledger) Transfer(from, to Address, amount uint64, now int64) (Movement, error) {
	if err := l.checkRecipient(to); err != nil {
		return Movement{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if from == to {
		if l.project(l.holders[from], now) < amount {
			return Movement{}, ErrInsufficientBalance
		}
		l.updateLocked(from, now)
		return Movement{From: from, To: to, Amount: amount, OccurredAt: now}, nil
	}

	if l.project(l.holders[from], now) < amount {
		return Movement{}, ErrInsufficientBalance
	}

	fromAmount := l.updateLocked(from, now)
	toAmount := l.updateLocked(to, now)

	// Both sides are part of totalRaw, so the credited side cannot wrap.
	l.holders[from] = holderRecord{raw: fromAmount - amount, lastUpdated: now}
	l.holders[to] = holderRecord{raw: toAmount + amount, lastUpdated: now}

	return Movement{From: from, To: to, Amount: amount, OccurredAt: now}, nil
}

// Mint creates amount new units for the recipient at now. The recipient's
// outstanding decay is applied first; total supply grows by exactly amount
// beyond that refresh. On error nothing changes, not even the refresh.
func (l *Ledger) Mint(to Address, amount uint64, now int64) (Movement, error) {
	if err := l.checkRecipient(to); err != nil {
		return Movement{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.holders[to]
	proj := l.project(rec, now)
	refreshedTotal := l.totalRaw - (rec.raw - proj)
	if amount > math.MaxUint64-refreshedTotal {
		return Movement{}, ErrOverflow
	}

	l.totalRaw = refreshedTotal + amount
	l.holders[to] = holderRecord{raw: proj + amount, lastUpdated: now}

	return Movement{From: ZeroAddress, To: to, Amount: amount, OccurredAt: now}, nil
}

// Restore installs a persisted holder record, replacing any existing one
// and adjusting the supply accumulator to match. Hosts call this while
// loading a ledger from storage; it is not part of normal operation.
func (l *Ledger) Restore(holder Address, raw uint64, lastUpdated int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.holders[holder]
	l.totalRaw += raw - prev.raw
	l.holders[holder] = holderRecord{raw: raw, lastUpdated: lastUpdated}
}

// Holders returns a snapshot of all stored records, in no particular order.
func (l *Ledger) Holders() []HolderState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]HolderState, 0, len(l.holders))
	for addr, rec := range l.holders {
		out = append(out, HolderState{Address: addr, Raw: rec.raw, LastUpdated: rec.lastUpdated})
	}
	return out
}

// Checkpoint brings every holder current at now and prunes fully decayed
// records from memory. It returns the post-update snapshot, including the
// pruned zero-balance entries so hosts can clear their persisted rows.
// Observable balances are unchanged by a checkpoint.
func (l *Ledger) Checkpoint(now int64) []HolderState {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]HolderState, 0, len(l.holders))
	for addr := range l.holders {
		amount := l.updateLocked(addr, now)
		out = append(out, HolderState{Address: addr, Raw: amount, LastUpdated: now})
		if amount == 0 {
			delete(l.holders, addr)
		}
	}
	return out
}
