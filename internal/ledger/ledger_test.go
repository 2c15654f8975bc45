package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copyarb/internal/domain"
)

const (
	mintA = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintB = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

func allowedCheck() AdmissionCheck {
	return AdmissionCheck{
		ActorAllowed: true,
		Notional:     1_000_000_000,
		MinBuy:       100_000_000,
		MaxBuy:       5_000_000_000,
	}
}

func TestLedger_TryAdmit_WritesPending(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))

	p, ok := l.Get(mintA)
	require.True(t, ok)
	assert.Equal(t, domain.PositionPending, p.Status)
	assert.Equal(t, mintA, p.Mint)
	assert.True(t, p.OpenedAt.IsZero())
	assert.False(t, l.BuyingEnabled(), "pending buy must block further admissions")
	assert.Equal(t, 1, l.Len())
}

func TestLedger_TryAdmit_ActorRejected(t *testing.T) {
	l := New()

	check := allowedCheck()
	check.ActorAllowed = false

	assert.ErrorIs(t, l.TryAdmit(mintA, check), ErrActorNotAllowed)
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.BuyingEnabled())
}

func TestLedger_TryAdmit_NotionalBounds(t *testing.T) {
	tests := []struct {
		name     string
		notional uint64
		minBuy   uint64
		maxBuy   uint64
		wantErr  error
	}{
		{name: "below min", notional: 99, minBuy: 100, maxBuy: 1000, wantErr: ErrNotionalOutOfRange},
		{name: "at min", notional: 100, minBuy: 100, maxBuy: 1000},
		{name: "at max", notional: 1000, minBuy: 100, maxBuy: 1000},
		{name: "above max", notional: 1001, minBuy: 100, maxBuy: 1000, wantErr: ErrNotionalOutOfRange},
		{name: "zero max is unbounded", notional: 1 << 62, minBuy: 100, maxBuy: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			err := l.TryAdmit(mintA, AdmissionCheck{
				ActorAllowed: true,
				Notional:     tt.notional,
				MinBuy:       tt.minBuy,
				MaxBuy:       tt.maxBuy,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLedger_TryAdmit_DuplicateBoughtRejected(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, time.Now())

	err := l.TryAdmit(mintA, allowedCheck())
	assert.ErrorIs(t, err, ErrAlreadyHeld)

	p, ok := l.Get(mintA)
	require.True(t, ok)
	assert.Equal(t, domain.PositionBought, p.Status, "rejected admission must not touch the held position")
}

func TestLedger_TryAdmit_BuyingDisabledByOtherMint(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, time.Now())

	assert.ErrorIs(t, l.TryAdmit(mintB, allowedCheck()), ErrBuyingDisabled)

	_, ok := l.Get(mintB)
	assert.False(t, ok, "rejected admission must not leave an entry behind")
}

func TestLedger_TryAdmit_PendingBlocksSecondAdmission(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	assert.ErrorIs(t, l.TryAdmit(mintB, allowedCheck()), ErrBuyingDisabled)
}

func TestLedger_TryAdmit_FirstWriterWins(t *testing.T) {
	l := New()
	mints := []string{mintA, mintB, "mint3", "mint4", "mint5", "mint6", "mint7", "mint8"}

	var wg sync.WaitGroup
	errs := make([]error, len(mints))
	start := make(chan struct{})
	for i, m := range mints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = l.TryAdmit(m, allowedCheck())
		}()
	}
	close(start)
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
		} else {
			assert.ErrorIs(t, err, ErrBuyingDisabled)
		}
	}
	assert.Equal(t, 1, admitted, "exactly one racer may win admission")
	assert.Equal(t, 1, l.Len())
}

func TestLedger_MarkFailed_ReenablesBuying(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkFailed(mintA)

	assert.True(t, l.BuyingEnabled())

	p, ok := l.Get(mintA)
	require.True(t, ok)
	assert.Equal(t, domain.PositionFailed, p.Status)

	// A failed entry is informational only: the same mint may be retried.
	assert.NoError(t, l.TryAdmit(mintA, allowedCheck()))
}

func TestLedger_MarkSold_ReenablesBuying(t *testing.T) {
	l := New()
	opened := time.Now()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, opened)
	require.False(t, l.BuyingEnabled())

	l.MarkSold(mintA, 0.75)

	assert.True(t, l.BuyingEnabled())
	p, ok := l.Get(mintA)
	require.True(t, ok)
	assert.Equal(t, domain.PositionSold, p.Status)
	assert.InDelta(t, 0.5, p.BuyPrice, 1e-12)
	assert.InDelta(t, 0.75, p.SellPrice, 1e-12)
	assert.Empty(t, l.Bought())
}

func TestLedger_Bought_ReturnsCopies(t *testing.T) {
	l := New()
	opened := time.Now()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, opened)

	held := l.Bought()
	require.Len(t, held, 1)
	assert.Equal(t, mintA, held[0].Mint)
	assert.True(t, held[0].OpenedAt.Equal(opened))

	// Mutating the copy must not leak back into the ledger.
	held[0].Status = domain.PositionSold
	p, ok := l.Get(mintA)
	require.True(t, ok)
	assert.Equal(t, domain.PositionBought, p.Status)
}

func TestLedger_SweepTimedOut(t *testing.T) {
	l := New()
	now := time.Now()
	maxWait := time.Minute

	// Held past the deadline.
	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, now.Add(-2*time.Minute))
	l.MarkSold(mintA, 0.6)
	// Fresh hold, within the deadline.
	require.NoError(t, l.TryAdmit(mintB, allowedCheck()))
	l.MarkBought(mintB, 0.5, now.Add(-30*time.Second))

	assert.Empty(t, l.SweepTimedOut(now, maxWait), "sold and fresh entries must not be swept")

	l.MarkSold(mintB, 0.6)
	require.NoError(t, l.TryAdmit("mint3", allowedCheck()))
	l.MarkBought("mint3", 1.0, now.Add(-61*time.Second))

	timedOut := l.SweepTimedOut(now, maxWait)
	require.Len(t, timedOut, 1)
	assert.Equal(t, "mint3", timedOut[0].Mint)
}

func TestLedger_SweepTimedOut_IgnoresPending(t *testing.T) {
	l := New()

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))

	assert.Empty(t, l.SweepTimedOut(time.Now().Add(time.Hour), time.Minute))
}

// Exercises the timeout liquidation round trip: a held position passes its
// deadline, the sweep reports it, the forced sell is recorded, and buying
// reopens.
func TestLedger_ForcedLiquidationFlow(t *testing.T) {
	l := New()
	opened := time.Now()
	maxWait := time.Minute

	require.NoError(t, l.TryAdmit(mintA, allowedCheck()))
	l.MarkBought(mintA, 0.5, opened)
	require.False(t, l.BuyingEnabled())

	timedOut := l.SweepTimedOut(opened.Add(2*time.Minute), maxWait)
	require.Len(t, timedOut, 1)
	require.Equal(t, mintA, timedOut[0].Mint)

	l.MarkSold(timedOut[0].Mint, 0.4)

	assert.True(t, l.BuyingEnabled(), "selling the last held position must re-enable buying")
	assert.Empty(t, l.SweepTimedOut(opened.Add(3*time.Minute), maxWait))
	assert.NoError(t, l.TryAdmit(mintB, allowedCheck()))
}

// The ledger may hold any number of closed entries but never more than one
// open (pending or bought) position.
func TestLedger_AtMostOneOpenPosition(t *testing.T) {
	l := New()
	mints := []string{mintA, mintB, "mint3", "mint4"}

	for i, m := range mints {
		require.NoError(t, l.TryAdmit(m, allowedCheck()))
		l.MarkBought(m, 1.0, time.Now())

		assert.Len(t, l.Bought(), 1)
		assert.False(t, l.BuyingEnabled())

		l.MarkSold(m, 1.1)
		assert.True(t, l.BuyingEnabled())
		assert.Equal(t, i+1, l.Len())
	}
}
