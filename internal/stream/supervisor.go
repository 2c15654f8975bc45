// Package stream runs the event loop: it consumes transaction records
// from a source, classifies them, and fans the results out to the
// ledger, the executor and the arbitrage detector, alongside the
// periodic watchdog, position-sweep and price-monitor tasks.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"solana-copyarb/internal/amm"
	"solana-copyarb/internal/arbitrage"
	"solana-copyarb/internal/classifier"
	"solana-copyarb/internal/config"
	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/executor"
	"solana-copyarb/internal/ledger"
	"solana-copyarb/internal/observability"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/records"
	"solana-copyarb/internal/storage"
	"solana-copyarb/internal/venue"
)

const (
	subscribeAttempts = 3

	defaultSubscribeRetry = 5 * time.Second
	defaultWatchdogEvery  = 120 * time.Second
	defaultSweepEvery     = 5 * time.Second
	defaultMonitorEvery   = 5 * time.Second
	defaultStaleAfter     = 300 * time.Second
	forcedSellSlippageBps = 10_000
	forcedSellPct         = 1.0
	copiedSellPct         = 1.0
)

// Options wires a Supervisor. Source, Classifier, Ledger, Executor and
// Config are required; everything else degrades gracefully when nil.
type Options struct {
	Source     Source
	Classifier *classifier.Classifier
	Ledger     *ledger.Ledger
	Executor   *executor.Executor
	Detector   *arbitrage.Detector
	Pools      *poolcache.Cache
	Tracker    *Tracker
	Prices     executor.BalanceReader
	Events     storage.TradeEventStore
	Samples    storage.PriceSampleStore
	Records    *records.Writer
	Registry   *venue.Registry
	Config     *config.Config
	Logger     *log.Logger
	Now        func() time.Time

	// Tick overrides for tests; zero means the default.
	SubscribeRetry time.Duration
	WatchdogEvery  time.Duration
	SweepEvery     time.Duration
	MonitorEvery   time.Duration
	StaleAfter     time.Duration
}

// Supervisor owns the single consuming loop plus the periodic tasks.
// Trade execution runs in per-attempt goroutines so the loop is never
// blocked on a broadcast.
type Supervisor struct {
	source     Source
	classifier *classifier.Classifier
	ledger     *ledger.Ledger
	executor   *executor.Executor
	detector   *arbitrage.Detector
	pools      *poolcache.Cache
	tracker    *Tracker
	prices     executor.BalanceReader
	events     storage.TradeEventStore
	samples    storage.PriceSampleStore
	records    *records.Writer
	registry   *venue.Registry
	config     *config.Config
	logger     *log.Logger
	now        func() time.Time

	subscribeRetry time.Duration
	watchdogEvery  time.Duration
	sweepEvery     time.Duration
	monitorEvery   time.Duration
	staleAfter     time.Duration

	startedAt  time.Time
	eventsSeen atomic.Uint64
	lastEvent  atomic.Int64 // unix nanos of the last consumed record

	// sellsInFlight keeps the 5s sweep and copied sells from issuing a
	// second liquidation while one is still broadcasting.
	sellsMu       sync.Mutex
	sellsInFlight map[string]struct{}

	// monitorBusy skips a monitor tick while the previous one still
	// has fetches outstanding.
	monitorBusy atomic.Bool

	wsReconnects uint64 // last observed source reconnect count
}

// NewSupervisor validates the wiring and applies defaults.
func NewSupervisor(opts Options) (*Supervisor, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("supervisor: source is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("supervisor: classifier is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("supervisor: ledger is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("supervisor: executor is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("supervisor: config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}
	registry := opts.Registry
	if registry == nil {
		registry = venue.DefaultRegistry()
	}

	s := &Supervisor{
		source:         opts.Source,
		classifier:     opts.Classifier,
		ledger:         opts.Ledger,
		executor:       opts.Executor,
		detector:       opts.Detector,
		pools:          opts.Pools,
		tracker:        tracker,
		prices:         opts.Prices,
		events:         opts.Events,
		samples:        opts.Samples,
		records:        opts.Records,
		registry:       registry,
		config:         opts.Config,
		logger:         logger,
		now:            now,
		subscribeRetry: orDefault(opts.SubscribeRetry, defaultSubscribeRetry),
		watchdogEvery:  orDefault(opts.WatchdogEvery, defaultWatchdogEvery),
		sweepEvery:     orDefault(opts.SweepEvery, defaultSweepEvery),
		monitorEvery:   orDefault(opts.MonitorEvery, defaultMonitorEvery),
		staleAfter:     orDefault(opts.StaleAfter, defaultStaleAfter),
		sellsInFlight:  make(map[string]struct{}),
	}
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Run subscribes and consumes until ctx is cancelled or the transport
// fails. A closed stream after a successful subscribe is fatal; the
// process supervisor restarts us rather than us resubscribing forever.
func (s *Supervisor) Run(ctx context.Context) error {
	s.startedAt = s.now()

	ch, err := s.subscribe(ctx)
	if err != nil {
		return err
	}
	s.logger.Printf("stream supervisor running: targets=%d monitor_mints=%d max_wait=%v",
		len(s.config.CopyTargets), len(s.config.MonitorMints), s.config.MaxWaitTime)

	watchdog := time.NewTicker(s.watchdogEvery)
	defer watchdog.Stop()
	sweep := time.NewTicker(s.sweepEvery)
	defer sweep.Stop()
	monitor := time.NewTicker(s.monitorEvery)
	defer monitor.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			s.handleRecord(ctx, &rec)
		case <-watchdog.C:
			s.checkStale()
		case <-sweep.C:
			s.sweepPositions(ctx)
		case <-monitor.C:
			s.monitorPrices(ctx)
		}
	}
}

// subscribe retries a bounded number of times before giving up.
func (s *Supervisor) subscribe(ctx context.Context) (<-chan domain.TransactionRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= subscribeAttempts; attempt++ {
		ch, err := s.source.Subscribe(ctx)
		if err == nil {
			return ch, nil
		}
		lastErr = err
		s.logger.Printf("subscribe attempt %d/%d failed: %v", attempt, subscribeAttempts, err)
		if attempt < subscribeAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.subscribeRetry):
			}
		}
	}
	return nil, fmt.Errorf("subscribe failed after %d attempts: %w", subscribeAttempts, lastErr)
}

// EventsSeen returns how many records the loop has consumed.
func (s *Supervisor) EventsSeen() uint64 {
	return s.eventsSeen.Load()
}

// LastEventAt returns when the last record was consumed, zero before the
// first one.
func (s *Supervisor) LastEventAt() time.Time {
	ns := s.lastEvent.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// StartedAt returns when Run began consuming.
func (s *Supervisor) StartedAt() time.Time {
	return s.startedAt
}

// handleRecord writes the record file, classifies, persists and
// dispatches one transaction.
func (s *Supervisor) handleRecord(ctx context.Context, rec *domain.TransactionRecord) {
	now := s.now()
	s.eventsSeen.Add(1)
	s.lastEvent.Store(now.UnixNano())
	observability.UpdateLastEvent(now.Unix())

	venueName := records.UnknownVenueDir
	if v := s.registry.DetectInLogs(rec.LogMessages); v != nil {
		venueName = v.Name
	}
	if s.records != nil {
		// Write failures are already logged by the writer; the stream
		// keeps going either way.
		_ = s.records.WriteTransaction(venueName, rec)
	}

	ev, err := s.classifier.Classify(rec)
	if err != nil {
		observability.RecordClassificationError(classifyReason(err))
		if !errors.Is(err, classifier.ErrUnrecognized) {
			s.logger.Printf("classify %s: %v", rec.Signature, err)
		}
		return
	}
	observability.RecordEventClassified(string(ev.Kind))

	if s.events != nil {
		if err := s.events.Insert(ctx, ev); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return // same transaction delivered twice, already dispatched
			}
			observability.RecordStoreError("trade_events", "insert")
			s.logger.Printf("store event %s: %v", ev.Signature, err)
		}
	}

	switch ev.Kind {
	case domain.EventSwapBuy:
		s.dispatchBuy(ctx, ev)
	case domain.EventSwapSell:
		s.dispatchSell(ctx, ev)
	case domain.EventArbitrage:
		s.dispatchArbitrage(ev)
	}
}

func classifyReason(err error) string {
	switch {
	case errors.Is(err, classifier.ErrMissingTransaction):
		return "missing_transaction"
	case errors.Is(err, classifier.ErrMissingBlockhash):
		return "missing_blockhash"
	case errors.Is(err, classifier.ErrUnrecognized):
		return "unrecognized"
	default:
		return "other"
	}
}

// dispatchBuy admits the mint and mirrors the buy in its own goroutine.
func (s *Supervisor) dispatchBuy(ctx context.Context, ev *domain.TradeEvent) {
	check := ledger.AdmissionCheck{
		ActorAllowed: s.config.IsCopyTarget(ev.Actor),
		Notional:     ev.MaxQuoteIn,
		MinBuy:       s.config.MinBuy,
		MaxBuy:       s.config.MaxBuy,
	}
	if err := s.ledger.TryAdmit(ev.Mint, check); err != nil {
		s.logger.Printf("buy not admitted mint=%s actor=%s notional=%d: %v",
			ev.Mint, ev.Actor, ev.MaxQuoteIn, err)
		return
	}
	observability.UpdateBuyingEnabled(s.ledger.BuyingEnabled())
	s.logger.Printf("copying buy mint=%s actor=%s notional=%d event=%s",
		ev.Mint, ev.Actor, ev.MaxQuoteIn, ev.Signature)

	go func() {
		_ = s.executor.ExecuteBuy(ctx, ev)
	}()
}

// dispatchSell mirrors a target's exit for a mint we hold.
func (s *Supervisor) dispatchSell(ctx context.Context, ev *domain.TradeEvent) {
	if !s.config.IsCopyTarget(ev.Actor) {
		return
	}
	pos, ok := s.ledger.Get(ev.Mint)
	if !ok || pos.Status != domain.PositionBought {
		return
	}
	if !s.beginSell(ev.Mint) {
		return
	}
	s.logger.Printf("copying sell mint=%s actor=%s event=%s", ev.Mint, ev.Actor, ev.Signature)

	go func() {
		defer s.endSell(ev.Mint)
		_ = s.executor.ExecuteSell(ctx, ev.Mint, copiedSellPct, s.config.SlippageBps)
	}()
}

// dispatchArbitrage refreshes the detector's view of the mint from the
// pool cache. The event itself carries no absolute prices; it is a
// signal to look, and the next sweep decides.
func (s *Supervisor) dispatchArbitrage(ev *domain.TradeEvent) {
	s.logger.Printf("arbitrage signal mint=%s %s->%s diff=%.2f%%",
		ev.Mint, ev.SourceVenue, ev.TargetVenue, ev.PriceDifference)
	if s.detector == nil || s.pools == nil || ev.Mint == "" {
		return
	}
	for _, p := range s.pools.Pools(ev.Mint) {
		if p.LastKnownPrice == nil {
			continue
		}
		liquidity := 0.0
		if p.Liquidity != nil {
			liquidity = *p.Liquidity
		}
		s.detector.UpdatePrice(ev.Mint, p.DexName, *p.LastKnownPrice, liquidity)
	}
}

// checkStale is read-only observability: it never tears the connection
// down, it only reports.
func (s *Supervisor) checkStale() {
	last := s.LastEventAt()
	if last.IsZero() {
		last = s.startedAt
	}
	idle := s.now().Sub(last)
	observability.UpdateStreamStale(idle.Seconds())
	if idle > s.staleAfter {
		s.logger.Printf("no events for %v (threshold %v)", idle.Truncate(time.Second), s.staleAfter)
	}

	if rc, ok := s.source.(interface{ Reconnects() uint64 }); ok {
		cur := rc.Reconnects()
		if d := cur - s.wsReconnects; d > 0 {
			observability.AddWSReconnects(d)
			s.wsReconnects = cur
		}
	}
}

// sweepPositions force-sells held positions past the wait limit and
// re-derives the trading gauges from the table.
func (s *Supervisor) sweepPositions(ctx context.Context) {
	for _, pos := range s.ledger.SweepTimedOut(s.now(), s.config.MaxWaitTime) {
		if !s.beginSell(pos.Mint) {
			continue // a liquidation for this mint is already in flight
		}
		held := s.now().Sub(pos.OpenedAt).Truncate(time.Millisecond)
		s.logger.Printf("force selling mint=%s held=%v limit=%v", pos.Mint, held, s.config.MaxWaitTime)
		observability.RecordForcedSell()

		mint := pos.Mint
		go func() {
			defer s.endSell(mint)
			_ = s.executor.ExecuteSell(ctx, mint, forcedSellPct, forcedSellSlippageBps)
		}()
	}
	observability.UpdateOpenPositions(len(s.ledger.Bought()))
	observability.UpdateBuyingEnabled(s.ledger.BuyingEnabled())
}

func (s *Supervisor) beginSell(mint string) bool {
	s.sellsMu.Lock()
	defer s.sellsMu.Unlock()
	if _, busy := s.sellsInFlight[mint]; busy {
		return false
	}
	s.sellsInFlight[mint] = struct{}{}
	return true
}

func (s *Supervisor) endSell(mint string) {
	s.sellsMu.Lock()
	defer s.sellsMu.Unlock()
	delete(s.sellsInFlight, mint)
}

// monitorPrices runs the price pass in the background, skipping the tick
// when the previous pass is still outstanding.
func (s *Supervisor) monitorPrices(ctx context.Context) {
	if s.prices == nil || s.pools == nil {
		return
	}
	if !s.monitorBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.monitorBusy.Store(false)
		s.runPriceMonitor(ctx)
	}()
}

// runPriceMonitor refreshes prices for every held token plus the
// configured monitor mints: one fetch task per token, then one batch of
// sample inserts, one cache save and one detector sweep.
func (s *Supervisor) runPriceMonitor(ctx context.Context) {
	held := make(map[string]domain.Position)
	keep := make(map[string]struct{})
	var mints []string
	for _, pos := range s.ledger.Bought() {
		held[pos.Mint] = pos
		keep[pos.Mint] = struct{}{}
		mints = append(mints, pos.Mint)
	}
	s.tracker.Retain(keep)
	for _, m := range s.config.MonitorMints {
		if _, ok := held[m]; !ok {
			mints = append(mints, m)
		}
	}
	if len(mints) == 0 {
		return
	}

	var slot uint64
	if sc, ok := s.prices.(interface {
		GetSlot(ctx context.Context) (uint64, error)
	}); ok {
		slot, _ = sc.GetSlot(ctx)
	}

	sampleCh := make(chan *domain.PriceSample, 64)
	var wg sync.WaitGroup
	for _, mint := range mints {
		pools := s.pools.Pools(mint)
		if len(pools) == 0 {
			continue
		}
		wg.Add(1)
		go func(mint string, pools []poolcache.CachedPool) {
			defer wg.Done()
			s.refreshMint(ctx, mint, pools, held, slot, sampleCh)
		}(mint, pools)
	}

	var samples []*domain.PriceSample
	done := make(chan struct{})
	go func() {
		for smp := range sampleCh {
			samples = append(samples, smp)
		}
		close(done)
	}()
	wg.Wait()
	close(sampleCh)
	<-done

	if len(samples) == 0 {
		return
	}

	if err := s.pools.Save(); err != nil {
		s.logger.Printf("save pool cache: %v", err)
	}
	if s.samples != nil {
		if err := s.samples.InsertBulk(ctx, samples); err != nil {
			observability.RecordStoreError("price_samples", "insert_bulk")
			s.logger.Printf("store price samples: %v", err)
		} else {
			observability.RecordPriceSamples(len(samples))
		}
	}
	if s.detector != nil {
		for range s.detector.Sweep(ctx) {
			observability.RecordArbOpportunity()
		}
	}
}

// refreshMint reads reserves for each of the mint's pools and pushes the
// resulting prices everywhere they are consumed.
func (s *Supervisor) refreshMint(ctx context.Context, mint string, pools []poolcache.CachedPool, held map[string]domain.Position, slot uint64, out chan<- *domain.PriceSample) {
	now := s.now()
	for _, p := range pools {
		price, liquidity, err := s.poolPrice(ctx, p)
		if err != nil {
			s.logger.Printf("price fetch mint=%s pool=%s: %v", mint, p.PoolID, err)
			continue
		}
		if price <= 0 {
			continue // drained or one-sided pool
		}

		if s.detector != nil {
			s.detector.UpdatePrice(mint, p.DexName, price, liquidity)
		}
		s.pools.UpdatePrice(mint, p.PoolID, price, liquidity)
		out <- &domain.PriceSample{
			Mint:        mint,
			Venue:       p.DexName,
			PoolID:      p.PoolID,
			Price:       price,
			Liquidity:   liquidity,
			Slot:        slot,
			TimestampMs: now.UnixMilli(),
		}

		if pos, isHeld := held[mint]; isHeld && pos.BuyPrice > 0 {
			profitPct := (price - pos.BuyPrice) / pos.BuyPrice * 100
			peak, trend := s.tracker.Observe(mint, price, profitPct, now)
			s.logger.Printf("price mint=%s venue=%s price=%.9f pnl=%.2f%% peak=%.2f%% trend=%.9f/s",
				mint, p.DexName, price, profitPct, peak, trend)
		}
	}
}

// poolPrice derives the pool's token accounts and reads both reserves.
// Liquidity is the quote-side reserve in lamports.
func (s *Supervisor) poolPrice(ctx context.Context, p poolcache.CachedPool) (price, liquidity float64, err error) {
	poolBase, err := venue.DeriveAssociatedTokenAccount(p.PoolID, p.BaseMint)
	if err != nil {
		return 0, 0, fmt.Errorf("derive base account: %w", err)
	}
	poolQuote, err := venue.DeriveAssociatedTokenAccount(p.PoolID, p.QuoteMint)
	if err != nil {
		return 0, 0, fmt.Errorf("derive quote account: %w", err)
	}
	baseReserve, _, err := s.prices.GetTokenAccountBalance(ctx, poolBase)
	if err != nil {
		return 0, 0, fmt.Errorf("base reserve: %w", err)
	}
	quoteReserve, _, err := s.prices.GetTokenAccountBalance(ctx, poolQuote)
	if err != nil {
		return 0, 0, fmt.Errorf("quote reserve: %w", err)
	}
	return amm.PoolPrice(quoteReserve, baseReserve), float64(quoteReserve), nil
}
