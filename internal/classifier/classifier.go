package classifier

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/venue"
)

// Classification errors. A failed classification skips one transaction;
// it never stops the stream.
var (
	ErrMissingTransaction = errors.New("transaction envelope is absent")
	ErrMissingBlockhash   = errors.New("transaction carries no recent blockhash")
	ErrUnrecognized       = errors.New("no recognizable instruction in transaction logs")
)

// Log markers identifying swap instructions. Venue programs log the
// instruction name and emit their event payload under the program-data
// prefix; a swap is recognized only when both appear in the line set.
const (
	buyLogMarker      = "Program log: Instruction: Buy"
	sellLogMarker     = "Program log: Instruction: Sell"
	programDataPrefix = "Program data: "
)

// Named event markers for venue programs that do not log the instruction
// name.
const (
	buyEventMarker       = "BuyEvent"
	sellEventMarker      = "SellEvent"
	arbitrageEventMarker = "ArbitrageEvent"
)

// Log keys of the line-oriented key:value micro-format. The value is the
// trimmed remainder of the line after the key; a value that fails to parse
// leaves the field absent and never aborts classification.
const (
	keyBaseAmountOut    = "base_amount_out:"
	keyMaxQuoteAmountIn = "max_quote_amount_in:"
	keyBaseAmountIn     = "base_amount_in:"
	keyMinQuoteOut      = "min_quote_amount_out:"
	keySourceDex        = "source_dex:"
	keyTargetDex        = "target_dex:"
	keyPriceDifference  = "price_difference:"
	keyExpectedProfit   = "expected_profit:"
	keyTokenMint        = "token_mint:"
	keyBaseReserves     = "pool_base_token_reserves:"
	keyQuoteReserves    = "pool_quote_token_reserves:"
)

// Classifier turns raw transaction records into typed trade events. It is
// stateless and safe for concurrent use.
type Classifier struct {
	registry *venue.Registry
}

func New(registry *venue.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Classify inspects a transaction's logs and account lists and produces
// the trade event it represents.
func (c *Classifier) Classify(rec *domain.TransactionRecord) (*domain.TradeEvent, error) {
	if rec == nil {
		return nil, ErrMissingTransaction
	}

	kind, ok := c.detectKind(rec.LogMessages)
	if !ok {
		return nil, ErrUnrecognized
	}

	if rec.RecentBlockhash == "" {
		return nil, ErrMissingBlockhash
	}

	ev := &domain.TradeEvent{
		Kind:            kind,
		Slot:            rec.Slot,
		RecentBlockhash: rec.RecentBlockhash,
		Signature:       rec.Signature,
		Actor:           actorAddress(rec),
		Timestamp:       time.Now().UnixMilli(),
	}

	switch kind {
	case domain.EventSwapBuy:
		if v, ok := logValueU64(rec.LogMessages, keyBaseAmountOut); ok {
			ev.BaseOut = v
		}
		if v, ok := logValueU64(rec.LogMessages, keyMaxQuoteAmountIn); ok {
			ev.MaxQuoteIn = v
		}
		ev.Pool = c.extractPool(rec)
		ev.TokenAmount = tokenAmountFor(rec, ev.Actor)
		if ev.Pool != nil {
			ev.Mint = ev.Pool.BaseMint
		}

	case domain.EventSwapSell:
		if v, ok := logValueU64(rec.LogMessages, keyBaseAmountIn); ok {
			ev.BaseIn = v
		}
		if v, ok := logValueU64(rec.LogMessages, keyMinQuoteOut); ok {
			ev.MinQuoteOut = v
		}
		ev.Pool = c.extractPool(rec)
		ev.TokenAmount = tokenAmountFor(rec, ev.Actor)
		if ev.Pool != nil {
			ev.Mint = ev.Pool.BaseMint
		}

	case domain.EventArbitrage:
		if v, ok := logValueString(rec.LogMessages, keySourceDex); ok {
			ev.SourceVenue = v
		}
		if v, ok := logValueString(rec.LogMessages, keyTargetDex); ok {
			ev.TargetVenue = v
		}
		if v, ok := logValueF64(rec.LogMessages, keyPriceDifference); ok {
			ev.PriceDifference = v
		}
		if v, ok := logValueF64(rec.LogMessages, keyExpectedProfit); ok {
			ev.ExpectedProfit = v
		}
		if v, ok := firstLogValue(rec.LogMessages, keyTokenMint); ok {
			ev.Mint = v
		}
	}

	return ev, nil
}

// detectKind scans the log lines in order; the first match wins. The
// instruction-name markers are tried over the whole line set first, the
// named-event fallback only when no marker matched.
func (c *Classifier) detectKind(logs []string) (domain.EventKind, bool) {
	anyProgramData := false
	for _, line := range logs {
		if strings.Contains(line, programDataPrefix) {
			anyProgramData = true
			break
		}
	}

	if anyProgramData {
		for _, line := range logs {
			if strings.Contains(line, buyLogMarker) {
				return domain.EventSwapBuy, true
			}
			if strings.Contains(line, sellLogMarker) {
				return domain.EventSwapSell, true
			}
		}
	}

	// Fallback for venue programs that only emit named events.
	if c.registry.DetectInLogs(logs) != nil {
		for _, line := range logs {
			switch {
			case strings.Contains(line, buyEventMarker):
				return domain.EventSwapBuy, true
			case strings.Contains(line, sellEventMarker):
				return domain.EventSwapSell, true
			case strings.Contains(line, arbitrageEventMarker):
				return domain.EventArbitrage, true
			}
		}
	}

	return "", false
}

// extractPool reads pool addresses from the first instruction owned by a
// known venue. Account positions come from the venue's offset table; a
// position beyond the instruction's account list leaves that field empty.
// Reserves are read from the reserve log keys. Without at least a pool id
// and a base mint there is no usable pool.
func (c *Classifier) extractPool(rec *domain.TransactionRecord) *domain.PoolInfo {
	var pool domain.PoolInfo
	for _, ix := range rec.Instructions {
		v := c.registry.ByProgramID(rec.ProgramID(ix))
		if v == nil {
			continue
		}
		off := v.Offsets
		pool.PoolID = rec.AccountAt(ix, off.PoolID)
		pool.BaseMint = rec.AccountAt(ix, off.BaseMint)
		pool.QuoteMint = rec.AccountAt(ix, off.QuoteMint)
		pool.PoolBaseAccount = rec.AccountAt(ix, off.PoolBase)
		pool.PoolQuoteAccount = rec.AccountAt(ix, off.PoolQuote)
		break
	}

	if pool.PoolID == "" || pool.BaseMint == "" {
		return nil
	}

	if v, ok := logValueU64(rec.LogMessages, keyBaseReserves); ok {
		pool.BaseReserve = v
	}
	if v, ok := logValueU64(rec.LogMessages, keyQuoteReserves); ok {
		pool.QuoteReserve = v
	}
	return &pool
}

// actorAddress is the transaction's first account key, the fee payer.
func actorAddress(rec *domain.TransactionRecord) string {
	if len(rec.AccountKeys) == 0 {
		return ""
	}
	return rec.AccountKeys[0]
}

// tokenAmountFor returns the first post-transaction token balance owned by
// the given address.
func tokenAmountFor(rec *domain.TransactionRecord, owner string) float64 {
	for _, b := range rec.PostTokenBalances {
		if b.Owner == owner {
			return b.Amount
		}
	}
	return 0
}

func valueAfter(line, key string) (string, bool) {
	_, after, ok := strings.Cut(line, key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(after), true
}

// logValueU64 returns the value of the last line whose key is followed by
// a parseable integer.
func logValueU64(logs []string, key string) (uint64, bool) {
	var out uint64
	found := false
	for _, line := range logs {
		raw, ok := valueAfter(line, key)
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		out = v
		found = true
	}
	return out, found
}

// logValueF64 is logValueU64 for floating-point values.
func logValueF64(logs []string, key string) (float64, bool) {
	var out float64
	found := false
	for _, line := range logs {
		raw, ok := valueAfter(line, key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		out = v
		found = true
	}
	return out, found
}

// logValueString returns the value of the last line carrying the key.
func logValueString(logs []string, key string) (string, bool) {
	var out string
	found := false
	for _, line := range logs {
		if raw, ok := valueAfter(line, key); ok {
			out = raw
			found = true
		}
	}
	return out, found
}

// firstLogValue returns the value of the first line carrying the key.
func firstLogValue(logs []string, key string) (string, bool) {
	for _, line := range logs {
		if raw, ok := valueAfter(line, key); ok {
			return raw, true
		}
	}
	return "", false
}
