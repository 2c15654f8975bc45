// Package executor turns classified swap events into signed, broadcast
// transactions and records every outcome.
package executor

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"solana-copyarb/internal/amm"
	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/idhash"
	"solana-copyarb/internal/ledger"
	"solana-copyarb/internal/observability"
	"solana-copyarb/internal/poolcache"
	"solana-copyarb/internal/storage"
	"solana-copyarb/internal/venue"
)

// routeVenue is the venue all executions are routed through, matching
// the instruction builders in the venue package.
const routeVenue = "pumpswap"

// Signer signs assembled instructions into one transaction and
// broadcasts it, returning the resulting signatures. An empty
// recentBlockhash means the signer fetches a fresh one first.
type Signer interface {
	SignAndSend(ctx context.Context, recentBlockhash string, ixs []venue.Instruction) ([]string, error)
}

// BalanceReader reads SPL token account balances. Named after the RPC
// client method so *solana.HTTPClient satisfies it directly.
type BalanceReader interface {
	GetTokenAccountBalance(ctx context.Context, account string) (amount uint64, decimals int, err error)
}

// Options configures an Executor.
type Options struct {
	// Ledger receives position transitions for every attempt.
	Ledger *ledger.Ledger
	// Signer broadcasts the assembled transaction.
	Signer Signer
	// Balances reads pool reserves and the wallet's token balances.
	Balances BalanceReader
	// Registry must contain the execution venue.
	Registry *venue.Registry
	// Pools resolves the sell-side pool; sells carry no event.
	Pools *poolcache.Cache
	// Wallet is the signing pubkey, used for ATA derivation.
	Wallet string
	// Executions receives one record per attempt. Optional.
	Executions storage.ExecutionStore
	// Logger defaults to log.Default().
	Logger *log.Logger
	// ExpireWindow bounds event-to-broadcast staleness for buys.
	ExpireWindow time.Duration
	// SlippageBps is the default buy slippage tolerance.
	SlippageBps uint64
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Executor builds, signs and broadcasts swaps for one wallet. Each
// Execute call is self-contained, so the supervisor runs them as
// independent goroutines.
type Executor struct {
	ledger     *ledger.Ledger
	signer     Signer
	balances   BalanceReader
	route      *venue.Venue
	pools      *poolcache.Cache
	wallet     string
	executions storage.ExecutionStore
	logger     *log.Logger
	expire     time.Duration
	slippage   uint64
	now        func() time.Time
}

// New validates the wiring and resolves the execution venue.
func New(opts Options) (*Executor, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("executor: ledger is required")
	}
	if opts.Signer == nil {
		return nil, fmt.Errorf("executor: signer is required")
	}
	if opts.Balances == nil {
		return nil, fmt.Errorf("executor: balance reader is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("executor: venue registry is required")
	}
	if opts.Pools == nil {
		return nil, fmt.Errorf("executor: pool cache is required")
	}
	if opts.Wallet == "" {
		return nil, fmt.Errorf("executor: wallet pubkey is required")
	}
	route := opts.Registry.ByName(routeVenue)
	if route == nil {
		return nil, fmt.Errorf("executor: venue %q not registered", routeVenue)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	expire := opts.ExpireWindow
	if expire <= 0 {
		expire = 10 * time.Second
	}
	slippage := opts.SlippageBps
	if slippage == 0 {
		slippage = 50
	}

	return &Executor{
		ledger:     opts.Ledger,
		signer:     opts.Signer,
		balances:   opts.Balances,
		route:      route,
		pools:      opts.Pools,
		wallet:     opts.Wallet,
		executions: opts.Executions,
		logger:     logger,
		expire:     expire,
		slippage:   slippage,
		now:        now,
	}, nil
}

// ExecuteBuy mirrors an observed buy: re-quote against fresh reserves,
// bound the spend with slippage, build the venue instructions and
// broadcast. The ledger entry for ev.Mint must already be pending; any
// failure flips it to Failed, success to Bought at the realized price.
func (e *Executor) ExecuteBuy(ctx context.Context, ev *domain.TradeEvent) error {
	start := e.now()
	if ev == nil {
		return ErrNoPool
	}
	mint := ev.Mint
	if ev.Pool == nil || ev.Pool.PoolBaseAccount == "" || ev.Pool.PoolQuoteAccount == "" {
		return e.failBuy(ctx, mint, ev.Signature, "pool", ErrNoPool, start)
	}

	baseReserve, _, err := e.balances.GetTokenAccountBalance(ctx, ev.Pool.PoolBaseAccount)
	if err != nil {
		return e.failBuy(ctx, mint, ev.Signature, "reserves", err, start)
	}
	quoteReserve, _, err := e.balances.GetTokenAccountBalance(ctx, ev.Pool.PoolQuoteAccount)
	if err != nil {
		return e.failBuy(ctx, mint, ev.Signature, "reserves", err, start)
	}

	quoteIn := ev.MaxQuoteIn
	if quoteIn == 0 {
		observability.RecordQuoteError("zero_amount")
		return e.failBuy(ctx, mint, ev.Signature, "quote", ErrZeroAmount, start)
	}
	baseOut := amm.QuoteBuy(quoteIn, quoteReserve, baseReserve)
	if baseOut == 0 {
		observability.RecordQuoteError("zero_amount")
		return e.failBuy(ctx, mint, ev.Signature, "quote", ErrZeroAmount, start)
	}
	if err := amm.CheckBuyFill(baseOut, baseReserve); err != nil {
		observability.RecordQuoteError("exceeds_reserves")
		return e.failBuy(ctx, mint, ev.Signature, "quote", err, start)
	}
	maxIn := amm.MaxInWithSlippage(quoteIn, e.slippage)
	observability.RecordQuote(string(domain.TradeBuy))

	ixs, err := e.buildBuy(ev, baseOut, maxIn)
	if err != nil {
		return e.failBuy(ctx, mint, ev.Signature, "build", err, start)
	}

	// The observed blockhash only stays valid for a short window; a
	// stale mirror would either fail on chain or fill at a moved price.
	if e.now().Sub(start) > e.expire {
		e.ledger.MarkFailed(mint)
		e.recordOutcome(ctx, outcome{
			mint:   mint,
			side:   domain.TradeBuy,
			status: domain.ExecutionExpired,
			quote:  quoteIn,
			base:   baseOut,
			err:    ErrExpired,
			at:     start,
		})
		e.logger.Printf("buy expired mint=%s event=%s elapsed=%v", mint, ev.Signature, e.now().Sub(start))
		return ErrExpired
	}

	sigs, err := e.signer.SignAndSend(ctx, ev.RecentBlockhash, ixs)
	if err != nil {
		return e.failBuy(ctx, mint, ev.Signature, "broadcast", err, start)
	}
	sig := ""
	if len(sigs) > 0 {
		sig = sigs[0]
	}

	price := float64(quoteIn) / float64(baseOut)
	e.ledger.MarkBought(mint, price, start)
	e.recordOutcome(ctx, outcome{
		mint:      mint,
		side:      domain.TradeBuy,
		status:    domain.ExecutionConfirmed,
		signature: sig,
		quote:     quoteIn,
		base:      baseOut,
		price:     price,
		at:        start,
	})
	e.logger.Printf("buy confirmed mint=%s sig=%s price=%.9f elapsed=%v", mint, sig, price, e.now().Sub(start))
	return nil
}

// ExecuteSell liquidates pct of the wallet's balance for mint. pct of
// exactly 1.0 sells everything and closes the token account; forced
// sells call this with pct=1.0 and slippageBps=10000 to accept any
// price. Success marks the position Sold, failure Failed.
func (e *Executor) ExecuteSell(ctx context.Context, mint string, pct float64, slippageBps uint64) error {
	start := e.now()
	if pct <= 0 {
		return e.failSell(ctx, mint, "amount", ErrZeroAmount, start)
	}
	if pct > 1.0 {
		return e.failSell(ctx, mint, "amount", ErrInsufficientBalance, start)
	}

	userBase, err := venue.DeriveAssociatedTokenAccount(e.wallet, mint)
	if err != nil {
		return e.failSell(ctx, mint, "derive", err, start)
	}
	balance, _, err := e.balances.GetTokenAccountBalance(ctx, userBase)
	if err != nil {
		return e.failSell(ctx, mint, "balance", err, start)
	}
	if balance == 0 {
		return e.failSell(ctx, mint, "balance", ErrInsufficientBalance, start)
	}

	baseIn := balance
	if pct < 1.0 {
		// floor(pct*100)*balance/100 without overflowing the product.
		k := uint64(math.Floor(pct * 100))
		baseIn = (balance/100)*k + (balance%100)*k/100
	}
	if baseIn == 0 {
		observability.RecordQuoteError("zero_amount")
		return e.failSell(ctx, mint, "amount", ErrZeroAmount, start)
	}

	pool, ok := e.sellPool(mint)
	if !ok {
		return e.failSell(ctx, mint, "pool", ErrNoPool, start)
	}
	poolBase, err := venue.DeriveAssociatedTokenAccount(pool.PoolID, pool.BaseMint)
	if err != nil {
		return e.failSell(ctx, mint, "derive", err, start)
	}
	poolQuote, err := venue.DeriveAssociatedTokenAccount(pool.PoolID, pool.QuoteMint)
	if err != nil {
		return e.failSell(ctx, mint, "derive", err, start)
	}

	baseReserve, _, err := e.balances.GetTokenAccountBalance(ctx, poolBase)
	if err != nil {
		return e.failSell(ctx, mint, "reserves", err, start)
	}
	quoteReserve, _, err := e.balances.GetTokenAccountBalance(ctx, poolQuote)
	if err != nil {
		return e.failSell(ctx, mint, "reserves", err, start)
	}

	quoteOut := amm.QuoteSell(baseIn, baseReserve, quoteReserve)
	if quoteOut == 0 {
		observability.RecordQuoteError("zero_amount")
		return e.failSell(ctx, mint, "quote", ErrZeroAmount, start)
	}
	minOut := amm.MinOutWithSlippage(quoteOut, slippageBps)
	observability.RecordQuote(string(domain.TradeSell))

	userQuote, err := venue.DeriveAssociatedTokenAccount(e.wallet, pool.QuoteMint)
	if err != nil {
		return e.failSell(ctx, mint, "derive", err, start)
	}
	acc := venue.SwapAccounts{
		PoolID:           pool.PoolID,
		Owner:            e.wallet,
		BaseMint:         pool.BaseMint,
		QuoteMint:        pool.QuoteMint,
		UserBaseAccount:  userBase,
		UserQuoteAccount: userQuote,
		PoolBaseAccount:  poolBase,
		PoolQuoteAccount: poolQuote,
	}
	sellIx, err := venue.SellInstruction(acc, baseIn, minOut)
	if err != nil {
		return e.failSell(ctx, mint, "build", err, start)
	}
	ixs := []venue.Instruction{sellIx}
	if pct == 1.0 {
		ixs = append(ixs, venue.CloseAccountInstruction(userBase, e.wallet, e.wallet))
	}

	sigs, err := e.signer.SignAndSend(ctx, "", ixs)
	if err != nil {
		return e.failSell(ctx, mint, "broadcast", err, start)
	}
	sig := ""
	if len(sigs) > 0 {
		sig = sigs[0]
	}

	price := float64(quoteOut) / float64(baseIn)
	e.ledger.MarkSold(mint, price)
	e.recordOutcome(ctx, outcome{
		mint:      mint,
		side:      domain.TradeSell,
		status:    domain.ExecutionConfirmed,
		signature: sig,
		quote:     quoteOut,
		base:      baseIn,
		price:     price,
		at:        start,
	})
	e.logger.Printf("sell confirmed mint=%s sig=%s price=%.9f pct=%.2f elapsed=%v", mint, sig, price, pct, e.now().Sub(start))
	return nil
}

// buildBuy assembles the idempotent ATA create plus the venue buy call.
func (e *Executor) buildBuy(ev *domain.TradeEvent, baseOut, maxQuoteIn uint64) ([]venue.Instruction, error) {
	userBase, err := venue.DeriveAssociatedTokenAccount(e.wallet, ev.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive user base account: %w", err)
	}
	quoteMint := ev.Pool.QuoteMint
	if quoteMint == "" {
		quoteMint = venue.SOLMint
	}
	userQuote, err := venue.DeriveAssociatedTokenAccount(e.wallet, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("derive user quote account: %w", err)
	}

	createATA, err := venue.CreateATAInstruction(e.wallet, e.wallet, ev.Mint)
	if err != nil {
		return nil, fmt.Errorf("build ata create: %w", err)
	}

	acc := venue.SwapAccounts{
		PoolID:           ev.Pool.PoolID,
		Owner:            e.wallet,
		BaseMint:         ev.Mint,
		QuoteMint:        quoteMint,
		UserBaseAccount:  userBase,
		UserQuoteAccount: userQuote,
		PoolBaseAccount:  ev.Pool.PoolBaseAccount,
		PoolQuoteAccount: ev.Pool.PoolQuoteAccount,
	}
	buyIx, err := venue.BuyInstruction(acc, baseOut, maxQuoteIn)
	if err != nil {
		return nil, fmt.Errorf("build buy: %w", err)
	}
	return []venue.Instruction{createATA, buyIx}, nil
}

// sellPool picks the pool to route a sell through: the cached pool on
// the execution venue, falling back to any cached pool for the mint.
func (e *Executor) sellPool(mint string) (poolcache.CachedPool, bool) {
	pools := e.pools.Pools(mint)
	for _, p := range pools {
		if p.DexName == e.route.Name {
			return p, true
		}
	}
	if len(pools) > 0 {
		return pools[0], true
	}
	return poolcache.CachedPool{}, false
}

type outcome struct {
	mint      string
	side      domain.TradeSide
	status    domain.ExecutionStatus
	signature string
	quote     uint64
	base      uint64
	price     float64
	err       error
	at        time.Time
}

// recordOutcome persists one attempt and refreshes the trading gauges.
// Store failures degrade to a log line; the ledger stays authoritative.
func (e *Executor) recordOutcome(ctx context.Context, o outcome) {
	observability.RecordTradeExecuted(string(o.side), string(o.status))
	observability.UpdateOpenPositions(len(e.ledger.Bought()))
	observability.UpdateBuyingEnabled(e.ledger.BuyingEnabled())

	if e.executions == nil {
		return
	}
	at := o.at.UnixMilli()
	var errStr *string
	if o.err != nil {
		s := o.err.Error()
		errStr = &s
	}
	x := &domain.TradeExecution{
		ID:          idhash.ComputeExecutionID(o.mint, o.side, o.signature, at),
		Mint:        o.mint,
		Side:        o.side,
		Venue:       e.route.Name,
		Signature:   o.signature,
		QuoteAmount: o.quote,
		BaseAmount:  o.base,
		Price:       o.price,
		Status:      o.status,
		Error:       errStr,
		ExecutedAt:  at,
	}
	if err := e.executions.Insert(ctx, x); err != nil {
		observability.RecordStoreError("executions", "insert")
		e.logger.Printf("record execution mint=%s side=%s: %v", o.mint, o.side, err)
	}
}

func (e *Executor) failBuy(ctx context.Context, mint, eventSig, stage string, cause error, at time.Time) error {
	e.ledger.MarkFailed(mint)
	e.recordOutcome(ctx, outcome{
		mint:   mint,
		side:   domain.TradeBuy,
		status: domain.ExecutionFailed,
		err:    cause,
		at:     at,
	})
	e.logger.Printf("buy failed mint=%s event=%s stage=%s: %v", mint, eventSig, stage, cause)
	return cause
}

func (e *Executor) failSell(ctx context.Context, mint, stage string, cause error, at time.Time) error {
	e.ledger.MarkFailed(mint)
	e.recordOutcome(ctx, outcome{
		mint:   mint,
		side:   domain.TradeSell,
		status: domain.ExecutionFailed,
		err:    cause,
		at:     at,
	})
	e.logger.Printf("sell failed mint=%s stage=%s: %v", mint, stage, cause)
	return cause
}
