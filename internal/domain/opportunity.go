package domain

// Opportunity is a detected cross-venue price gap exceeding the configured
// threshold with sufficient liquidity on both sides. Field set matches the
// on-disk arbitrage record JSON exactly.
type Opportunity struct {
	Timestamp          string  `json:"timestamp"` // compact UTC, YYYYMMDDHHMMSS
	TokenMint          string  `json:"token_mint"`
	BuyDex             string  `json:"buy_dex"`
	BuyPrice           float64 `json:"buy_price"`
	BuyPool            string  `json:"buy_pool"`
	SellDex            string  `json:"sell_dex"`
	SellPrice          float64 `json:"sell_price"`
	SellPool           string  `json:"sell_pool"`
	PriceDifferencePct float64 `json:"price_difference_pct"`
	MinLiquidity       float64 `json:"min_liquidity"`
}

// ExpectedProfitPct returns (sell-buy)/buy*100 for the opportunity.
func (o *Opportunity) ExpectedProfitPct() float64 {
	if o.BuyPrice == 0 {
		return 0
	}
	return (o.SellPrice - o.BuyPrice) / o.BuyPrice * 100
}
