package domain

// PoolInfo describes one venue pool for a token pair.
// Reserves are a point-in-time snapshot in smallest-unit denomination,
// refreshed whenever a new quote is computed, never continuously synced.
type PoolInfo struct {
	PoolID           string // pool account address
	BaseMint         string // traded token mint
	QuoteMint        string // quote token mint (WSOL/USDC)
	PoolBaseAccount  string // pool's base token account
	PoolQuoteAccount string // pool's quote token account
	BaseReserve      uint64 // base token reserve, smallest unit
	QuoteReserve     uint64 // quote token reserve, smallest unit
}

// PriceSample is one observed price point for a (mint, venue) pair.
// Corresponds to the price_samples table in ClickHouse.
type PriceSample struct {
	Mint        string  // token mint address
	Venue       string  // venue name (pumpswap, raydium_amm, ...)
	PoolID      string  // pool account address
	Price       float64 // quote per base, decimal adjusted
	Liquidity   float64 // quote-side liquidity, smallest unit
	Slot        uint64  // slot the sample was taken at (0 if unknown)
	TimestampMs int64   // Unix timestamp in milliseconds
}
