package arbitrage

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/records"
)

const arbTestMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

var arbTestClock = func() time.Time {
	return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
}

// captureStore records inserted opportunities and optionally fails.
type captureStore struct {
	mu  sync.Mutex
	ops []domain.Opportunity
	err error
}

func (s *captureStore) Insert(_ context.Context, o *domain.Opportunity) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, *o)
	return nil
}

func (s *captureStore) GetByMint(_ context.Context, mint string) ([]*domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Opportunity
	for i := range s.ops {
		if s.ops[i].TokenMint == mint {
			out = append(out, &s.ops[i])
		}
	}
	return out, nil
}

func (s *captureStore) GetAll(_ context.Context) ([]*domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Opportunity, len(s.ops))
	for i := range s.ops {
		out[i] = &s.ops[i]
	}
	return out, nil
}

func (s *captureStore) inserted() []domain.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Opportunity(nil), s.ops...)
}

func newTestDetector(t *testing.T, opts Options) *Detector {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[test] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = arbTestClock
	}
	return NewDetector(opts)
}

func TestDetector_Sweep_EmitsQualifyingGap(t *testing.T) {
	store := &captureStore{}
	recDir := t.TempDir()
	d := newTestDetector(t, Options{
		ThresholdPct: 2.0,
		MinLiquidity: 10_000_000,
		Store:        store,
		Records:      records.NewWriter(records.Options{Dir: recDir, Now: arbTestClock}),
	})

	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 20_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.03, 15_000_000)

	ops := d.Sweep(context.Background())

	require.Len(t, ops, 1)
	op := ops[0]
	assert.Equal(t, arbTestMint, op.TokenMint)
	assert.Equal(t, "raydium_amm", op.BuyDex)
	assert.Equal(t, 1.00, op.BuyPrice)
	assert.Equal(t, "whirlpool", op.SellDex)
	assert.Equal(t, 1.03, op.SellPrice)
	assert.InDelta(t, 3.0, op.PriceDifferencePct, 1e-9)
	assert.InDelta(t, 0.01, op.MinLiquidity, 1e-12, "liquidity floor is recorded in SOL")
	assert.Equal(t, "20250314150926", op.Timestamp)

	require.Len(t, store.inserted(), 1)
	assert.Equal(t, op, store.inserted()[0])

	_, err := os.Stat(filepath.Join(recDir, "arbitrage", "arb_EPjFWdd5_20250314150926.json"))
	assert.NoError(t, err, "each emission writes its record file")
}

func TestDetector_Sweep_ThresholdIsStrict(t *testing.T) {
	// 1.0 vs 2.0 against the sorted-later venue: |1-2|/2*100 = 50 exactly.
	feed := func(d *Detector) {
		d.UpdatePrice(arbTestMint, "meteora_dlmm", 1.0, 20_000_000)
		d.UpdatePrice(arbTestMint, "raydium_amm", 2.0, 20_000_000)
	}

	atThreshold := newTestDetector(t, Options{ThresholdPct: 50.0, MinLiquidity: 1})
	feed(atThreshold)
	assert.Empty(t, atThreshold.Sweep(context.Background()), "diff equal to the threshold must not emit")

	below := newTestDetector(t, Options{ThresholdPct: 49.9, MinLiquidity: 1})
	feed(below)
	assert.Len(t, below.Sweep(context.Background()), 1)
}

func TestDetector_Sweep_LiquidityFloor(t *testing.T) {
	d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 10_000_000})

	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 20_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.50, 9_999_999)

	assert.Empty(t, d.Sweep(context.Background()), "either side below the floor blocks emission")

	// Exactly at the floor qualifies.
	d.UpdatePrice(arbTestMint, "whirlpool", 1.50, 10_000_000)
	assert.Len(t, d.Sweep(context.Background()), 1)
}

func TestDetector_Sweep_NeedsTwoVenues(t *testing.T) {
	d := newTestDetector(t, Options{ThresholdPct: 0.1, MinLiquidity: 1})

	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 20_000_000)

	assert.Empty(t, d.Sweep(context.Background()))
}

func TestDetector_Sweep_BuyVenueIsCheaper(t *testing.T) {
	for name, prices := range map[string][2]float64{
		"cheaper first":  {1.00, 1.50},
		"cheaper second": {1.50, 1.00},
	} {
		t.Run(name, func(t *testing.T) {
			d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 1})
			d.UpdatePrice(arbTestMint, "meteora_pools", prices[0], 1_000_000)
			d.UpdatePrice(arbTestMint, "raydium_cpmm", prices[1], 1_000_000)

			ops := d.Sweep(context.Background())
			require.Len(t, ops, 1)
			assert.Less(t, ops[0].BuyPrice, ops[0].SellPrice)
			assert.Equal(t, 1.00, ops[0].BuyPrice)
			assert.Equal(t, 1.50, ops[0].SellPrice)
		})
	}
}

func TestDetector_UpdatePrice_Overwrites(t *testing.T) {
	d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 1})

	d.UpdatePrice(arbTestMint, "raydium_amm", 5.00, 1_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.00, 1_000_000)
	// Fresh sample closes the gap.
	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 1_000_000)

	assert.Empty(t, d.Sweep(context.Background()))
}

func TestDetector_UpdatePrice_DropsNonPositive(t *testing.T) {
	d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 1})

	d.UpdatePrice(arbTestMint, "raydium_amm", 0, 1_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", -1.0, 1_000_000)
	d.UpdatePrice(arbTestMint, "meteora_dlmm", 2.0, 1_000_000)

	// Only the one valid sample survives, so no pair exists.
	assert.Empty(t, d.Sweep(context.Background()))
}

func TestDetector_Sweep_ResolvesPoolsFromCache(t *testing.T) {
	cache, err := poolcache.Load(filepath.Join(t.TempDir(), "pool_cache.json"), nil)
	require.NoError(t, err)
	cache.Upsert(arbTestMint, poolcache.CachedPool{
		PoolID:   "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
		DexName:  "raydium_amm",
		BaseMint: arbTestMint,
	})

	d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 1, Pools: cache})
	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 1_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.50, 1_000_000)

	ops := d.Sweep(context.Background())
	require.Len(t, ops, 1)
	assert.Equal(t, "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2", ops[0].BuyPool)
	assert.Equal(t, "unknown", ops[0].SellPool, "venues without a cached pool fall back to unknown")
}

func TestDetector_Sweep_AllPairs(t *testing.T) {
	d := newTestDetector(t, Options{ThresholdPct: 0.1, MinLiquidity: 1})

	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 1_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.10, 1_000_000)
	d.UpdatePrice(arbTestMint, "meteora_dlmm", 1.20, 1_000_000)

	ops := d.Sweep(context.Background())
	assert.Len(t, ops, 3, "three venues form three unordered pairs")
	for _, op := range ops {
		assert.Less(t, op.BuyPrice, op.SellPrice)
	}
}

func TestDetector_Sweep_StoreFailureKeepsEmission(t *testing.T) {
	store := &captureStore{err: errors.New("insert failed")}
	d := newTestDetector(t, Options{ThresholdPct: 1.0, MinLiquidity: 1, Store: store})

	d.UpdatePrice(arbTestMint, "raydium_amm", 1.00, 1_000_000)
	d.UpdatePrice(arbTestMint, "whirlpool", 1.50, 1_000_000)

	assert.Len(t, d.Sweep(context.Background()), 1, "a sink failure must not drop the emission")
}
