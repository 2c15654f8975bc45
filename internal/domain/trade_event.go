package domain

// EventKind represents the classified type of an observed transaction.
type EventKind string

const (
	EventSwapBuy   EventKind = "SWAP_BUY"
	EventSwapSell  EventKind = "SWAP_SELL"
	EventArbitrage EventKind = "ARBITRAGE"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k EventKind) IsValid() bool {
	return k == EventSwapBuy || k == EventSwapSell || k == EventArbitrage
}

// TradeEvent is an immutable snapshot of one classified on-chain event.
// Created once per observed transaction and never mutated afterwards.
type TradeEvent struct {
	Kind            EventKind
	Slot            uint64
	RecentBlockhash string
	Signature       string
	Actor           string    // first account key (fee payer / signer)
	Mint            string    // token mint the event concerns
	Pool            *PoolInfo // nil when no known venue instruction was found
	TokenAmount     float64   // actor's post-transaction token balance
	Timestamp       int64     // Unix timestamp in milliseconds

	// Buy direction fields (zero unless Kind == EventSwapBuy)
	BaseOut    uint64
	MaxQuoteIn uint64

	// Sell direction fields (zero unless Kind == EventSwapSell)
	BaseIn      uint64
	MinQuoteOut uint64

	// Arbitrage fields (empty unless Kind == EventArbitrage)
	SourceVenue     string
	TargetVenue     string
	PriceDifference float64
	ExpectedProfit  float64
}

// IsSwap reports whether the event is a directional swap (buy or sell).
func (e *TradeEvent) IsSwap() bool {
	return e.Kind == EventSwapBuy || e.Kind == EventSwapSell
}
