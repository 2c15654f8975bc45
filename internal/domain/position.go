package domain

import "time"

// PositionStatus represents the lifecycle state of a held position.
type PositionStatus string

const (
	// PositionPending marks a buy in flight: admitted but not yet confirmed.
	PositionPending PositionStatus = "PENDING"
	// PositionBought marks a confirmed open position.
	PositionBought PositionStatus = "BOUGHT"
	// PositionSold marks a liquidated position (manual or forced).
	PositionSold PositionStatus = "SOLD"
	// PositionFailed marks a failed buy attempt. A Failed entry is
	// informational only and never blocks re-buying the same mint.
	PositionFailed PositionStatus = "FAILED"
)

// String returns the string representation of PositionStatus.
func (s PositionStatus) String() string {
	return string(s)
}

// Position is one ledger entry, keyed uniquely by mint.
type Position struct {
	Mint      string
	Status    PositionStatus
	BuyPrice  float64   // realized entry price, set on Bought
	SellPrice float64   // realized exit price, set on Sold
	OpenedAt  time.Time // zero until the position reaches Bought
}

// HeldLongerThan reports whether a Bought position has been open for more
// than maxWait as of now. Always false for non-Bought entries.
func (p *Position) HeldLongerThan(now time.Time, maxWait time.Duration) bool {
	if p.Status != PositionBought || p.OpenedAt.IsZero() {
		return false
	}
	return now.Sub(p.OpenedAt) > maxWait
}
