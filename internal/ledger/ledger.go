// Package ledger tracks the position lifecycle for copy trading. It holds
// one entry per mint and serializes buys so that at most one position is
// open (pending or bought) at any time.
package ledger

import (
	"errors"
	"sync"
	"time"

	"solana-copyarb/internal/domain"
)

var (
	// ErrActorNotAllowed rejects events whose actor fails the caller's
	// copy-target or monitor-mode filter.
	ErrActorNotAllowed = errors.New("actor does not match the configured targets")
	// ErrNotionalOutOfRange rejects buys outside the configured size bounds.
	ErrNotionalOutOfRange = errors.New("buy notional outside the configured bounds")
	// ErrAlreadyHeld rejects a buy for a mint that already has a bought
	// position, whether or not buying is otherwise enabled.
	ErrAlreadyHeld = errors.New("mint already has a bought position")
	// ErrBuyingDisabled rejects a buy while another position is open.
	ErrBuyingDisabled = errors.New("buying disabled while a position is open")
)

// AdmissionCheck carries the caller-side inputs to TryAdmit. The ledger
// owns only the positional state; who is allowed to trigger a copy and how
// large the buy is are decided upstream and passed in here.
type AdmissionCheck struct {
	// ActorAllowed is the result of the copy-target / filter match.
	ActorAllowed bool
	// Notional is the quote amount the buy would spend, in lamports.
	Notional uint64
	// MinBuy and MaxBuy bound Notional. MaxBuy == 0 disables the upper
	// bound.
	MinBuy uint64
	MaxBuy uint64
}

// Ledger is a mutex-guarded position table keyed by mint. The zero value is
// not usable; construct with New.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*domain.Position
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]*domain.Position)}
}

// TryAdmit atomically checks every buy precondition and, if all pass,
// writes a Pending entry for mint. The check and the write happen under one
// lock, so when two events race for admission exactly one wins and the
// other observes buying disabled.
//
// Preconditions, in rejection order: the actor filter, the notional bounds,
// the duplicate guard for mint, and derived buying-enabled.
func (l *Ledger) TryAdmit(mint string, check AdmissionCheck) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !check.ActorAllowed {
		return ErrActorNotAllowed
	}
	if check.Notional < check.MinBuy {
		return ErrNotionalOutOfRange
	}
	if check.MaxBuy > 0 && check.Notional > check.MaxBuy {
		return ErrNotionalOutOfRange
	}
	if p, ok := l.positions[mint]; ok && p.Status == domain.PositionBought {
		return ErrAlreadyHeld
	}
	if !l.buyingEnabledLocked() {
		return ErrBuyingDisabled
	}

	l.positions[mint] = &domain.Position{
		Mint:   mint,
		Status: domain.PositionPending,
	}
	return nil
}

// MarkBought records a confirmed buy for mint at buyPrice. The position
// opens at openedAt, which starts the forced-liquidation clock.
func (l *Ledger) MarkBought(mint string, buyPrice float64, openedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.ensureLocked(mint)
	p.Status = domain.PositionBought
	p.BuyPrice = buyPrice
	p.OpenedAt = openedAt
}

// MarkFailed records a failed buy for mint. A Failed entry never blocks a
// later admission for the same mint.
func (l *Ledger) MarkFailed(mint string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.ensureLocked(mint)
	p.Status = domain.PositionFailed
}

// MarkSold records a completed sell for mint at sellPrice. Once the last
// open entry is sold, buying is enabled again.
func (l *Ledger) MarkSold(mint string, sellPrice float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.ensureLocked(mint)
	p.Status = domain.PositionSold
	p.SellPrice = sellPrice
}

// BuyingEnabled reports whether a new buy may be admitted. The value is
// derived from the table on every call, never stored: true iff no entry is
// Pending or Bought.
func (l *Ledger) BuyingEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buyingEnabledLocked()
}

// Bought returns copies of all currently held positions.
func (l *Ledger) Bought() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Position
	for _, p := range l.positions {
		if p.Status == domain.PositionBought {
			out = append(out, *p)
		}
	}
	return out
}

// Get returns a copy of the entry for mint, if one exists.
func (l *Ledger) Get(mint string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[mint]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Len returns the number of tracked entries of any status.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// SweepTimedOut returns copies of the held positions open longer than
// maxWait as of now. The ledger only reports them; issuing the forced sells
// and marking the results is the caller's job.
func (l *Ledger) SweepTimedOut(now time.Time, maxWait time.Duration) []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Position
	for _, p := range l.positions {
		if p.HeldLongerThan(now, maxWait) {
			out = append(out, *p)
		}
	}
	return out
}

func (l *Ledger) buyingEnabledLocked() bool {
	for _, p := range l.positions {
		if p.Status == domain.PositionPending || p.Status == domain.PositionBought {
			return false
		}
	}
	return true
}

func (l *Ledger) ensureLocked(mint string) *domain.Position {
	p, ok := l.positions[mint]
	if !ok {
		p = &domain.Position{Mint: mint}
		l.positions[mint] = p
	}
	return p
}
