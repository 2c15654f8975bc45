package domain

// ExecutionStatus represents the terminal outcome of one trade attempt.
type ExecutionStatus string

const (
	ExecutionConfirmed ExecutionStatus = "confirmed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionExpired   ExecutionStatus = "expired"
)

// TradeSide is the direction of an executed trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// TradeExecution records the outcome of one buy or sell attempt.
// Corresponds to the trade_executions table in PostgreSQL.
type TradeExecution struct {
	ID          string          // deterministic hash, see idFromFields
	Mint        string          // token mint traded
	Side        TradeSide       // buy | sell
	Venue       string          // venue name the trade was routed to
	Signature   string          // broadcast signature, empty when failed early
	QuoteAmount uint64          // quote-side amount, smallest unit
	BaseAmount  uint64          // base-side amount, smallest unit
	Price       float64         // realized price quote/base
	Status      ExecutionStatus // confirmed | failed | expired
	Error       *string         // failure detail (nullable)
	ExecutedAt  int64           // Unix timestamp in milliseconds
}
