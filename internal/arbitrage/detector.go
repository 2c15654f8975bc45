// Package arbitrage detects cross-venue price gaps for tracked tokens.
// The detector only observes and records; executing an opportunity is an
// extension point, not implemented behavior.
package arbitrage

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/records"
	"solana-copyarb/internal/storage"
)

const poolUnknown = "unknown"

const lamportsPerSOL = 1_000_000_000

// VenuePrice is the latest observed price for one mint on one venue.
// Each update overwrites the previous one; the detector keeps no history.
type VenuePrice struct {
	Price     float64
	Liquidity float64 // lamports
	UpdatedAt time.Time
}

// Options configures a Detector.
type Options struct {
	// ThresholdPct gates emission: a pair is emitted only when its price
	// difference percentage strictly exceeds it.
	ThresholdPct float64
	// MinLiquidity is the floor, in lamports, both venues must clear.
	MinLiquidity float64
	// Pools resolves pool ids for emitted records. Optional.
	Pools *poolcache.Cache
	// Store receives every emitted opportunity. Optional.
	Store storage.OpportunityStore
	// Records writes the per-opportunity JSON files. Optional.
	Records *records.Writer
	// Logger defaults to log.Default().
	Logger *log.Logger
	// Now overrides the sweep clock. Defaults to time.Now.
	Now func() time.Time
}

// Detector owns the mint-to-venue price map and sweeps it for gaps.
type Detector struct {
	thresholdPct float64
	minLiquidity float64
	pools        *poolcache.Cache
	store        storage.OpportunityStore
	records      *records.Writer
	logger       *log.Logger
	now          func() time.Time

	mu     sync.Mutex
	prices map[string]map[string]VenuePrice
}

// NewDetector creates a detector with the given gates and sinks.
func NewDetector(opts Options) *Detector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Detector{
		thresholdPct: opts.ThresholdPct,
		minLiquidity: opts.MinLiquidity,
		pools:        opts.Pools,
		store:        opts.Store,
		records:      opts.Records,
		logger:       logger,
		now:          now,
		prices:       make(map[string]map[string]VenuePrice),
	}
}

// UpdatePrice records the latest price and liquidity for mint on venue,
// overwriting any previous sample. Non-positive prices are dropped.
func (d *Detector) UpdatePrice(mint, venue string, price, liquidity float64) {
	if price <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	byVenue, ok := d.prices[mint]
	if !ok {
		byVenue = make(map[string]VenuePrice)
		d.prices[mint] = byVenue
	}
	byVenue[venue] = VenuePrice{Price: price, Liquidity: liquidity, UpdatedAt: d.now()}
}

// Sweep compares every venue pair for every mint with at least two samples
// and emits each qualifying gap: the pair's difference percentage must
// strictly exceed the threshold and both venues must clear the liquidity
// floor. The cheaper venue is always the buy side. Emitted opportunities
// are appended to the store and written as record files; sink failures are
// logged and do not drop the returned slice.
func (d *Detector) Sweep(ctx context.Context) []domain.Opportunity {
	emitted := d.collect(records.Stamp(d.now()))

	for _, op := range emitted {
		if d.store != nil {
			if err := d.store.Insert(ctx, &op); err != nil {
				d.logger.Printf("arbitrage: store opportunity for %s: %v", op.TokenMint, err)
			}
		}
		if d.records != nil {
			if err := d.records.WriteOpportunity(op); err != nil {
				d.logger.Printf("arbitrage: record opportunity for %s: %v", op.TokenMint, err)
			}
		}
		d.logger.Printf("arbitrage: %s buy %s at %.6f (pool %s), sell %s at %.6f (pool %s), profit %.2f%%",
			op.TokenMint, op.BuyDex, op.BuyPrice, op.BuyPool,
			op.SellDex, op.SellPrice, op.SellPool, op.PriceDifferencePct)
	}
	return emitted
}

func (d *Detector) collect(stamp string) []domain.Opportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []domain.Opportunity
	for mint, byVenue := range d.prices {
		if len(byVenue) < 2 {
			continue
		}

		// Sorted venue order keeps the pair denominator deterministic.
		venues := make([]string, 0, len(byVenue))
		for v := range byVenue {
			venues = append(venues, v)
		}
		sort.Strings(venues)

		for i := 0; i < len(venues); i++ {
			for j := i + 1; j < len(venues); j++ {
				first, second := byVenue[venues[i]], byVenue[venues[j]]

				diffPct := math.Abs(first.Price-second.Price) / second.Price * 100
				if diffPct <= d.thresholdPct {
					continue
				}
				if first.Liquidity < d.minLiquidity || second.Liquidity < d.minLiquidity {
					continue
				}

				buyDex, buy, sellDex, sell := venues[i], first, venues[j], second
				if second.Price < first.Price {
					buyDex, buy, sellDex, sell = venues[j], second, venues[i], first
				}

				out = append(out, domain.Opportunity{
					Timestamp:          stamp,
					TokenMint:          mint,
					BuyDex:             buyDex,
					BuyPrice:           buy.Price,
					BuyPool:            d.poolFor(mint, buyDex),
					SellDex:            sellDex,
					SellPrice:          sell.Price,
					SellPool:           d.poolFor(mint, sellDex),
					PriceDifferencePct: (sell.Price - buy.Price) / buy.Price * 100,
					MinLiquidity:       d.minLiquidity / lamportsPerSOL,
				})
			}
		}
	}
	return out
}

// poolFor resolves the cached pool id for mint on venue; the last cached
// pool for the venue wins when several exist.
func (d *Detector) poolFor(mint, venue string) string {
	if d.pools == nil {
		return poolUnknown
	}
	id := poolUnknown
	for _, p := range d.pools.Pools(mint) {
		if p.DexName == venue {
			id = p.PoolID
		}
	}
	return id
}
