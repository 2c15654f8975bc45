package classifier

import (
	"errors"
	"testing"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/venue"
)

const (
	testActor     = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testPool      = "8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"
	testBaseMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testPoolBase  = "HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH"
	testPoolQuote = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
)

// swapRecord builds a transaction whose single venue instruction carries
// the pool accounts at the classifier's positional offsets.
func swapRecord(logs []string) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		Signature:       "3AsdELJgD2qWkA5bbZGdiy4VkM84yZUJyjGkFJmJzVNhEq6zW3",
		Slot:            345_678_901,
		RecentBlockhash: "9rGAyRmGsgCR7nqKzVTGYriqJkXwRke4y7DScKxQMXfB",
		LogMessages:     logs,
		AccountKeys: []string{
			testActor,             // 0: fee payer
			testPool,              // 1
			"placeholder",         // 2
			venue.PumpSwapProgram, // 3
			testBaseMint,          // 4
			venue.SOLMint,         // 5
			"userBaseAccount",     // 6
			"userQuoteAccount",    // 7
			testPoolBase,          // 8
			testPoolQuote,         // 9
		},
		Instructions: []domain.CompiledInstruction{
			{ProgramIDIndex: 3, Accounts: []int{1, 6, 7, 4, 5, 2, 2, 8, 9}},
		},
		PostTokenBalances: []domain.TokenBalance{
			{AccountIndex: 8, Mint: testBaseMint, Owner: testPool, Amount: 980_392},
			{AccountIndex: 6, Mint: testBaseMint, Owner: testActor, Amount: 19.608, Decimals: 6},
		},
	}
}

func buyLogs() []string {
	return []string{
		"Program ComputeBudget111111111111111111111111111111 invoke [1]",
		"Program " + venue.PumpSwapProgram + " invoke [1]",
		"Program log: Instruction: Buy",
		"Program data: QnV5RXZlbnQAAAAA",
		"Program log: base_amount_out: 19608",
		"Program log: max_quote_amount_in: 10050",
		"Program log: pool_base_token_reserves: 1000000",
		"Program log: pool_quote_token_reserves: 500000",
		"Program " + venue.PumpSwapProgram + " success",
	}
}

func TestClassifyBuy(t *testing.T) {
	c := New(venue.DefaultRegistry())

	ev, err := c.Classify(swapRecord(buyLogs()))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if ev.Kind != domain.EventSwapBuy {
		t.Fatalf("Expected SWAP_BUY, got %s", ev.Kind)
	}
	if ev.Actor != testActor {
		t.Errorf("Expected actor %s, got %s", testActor, ev.Actor)
	}
	if ev.BaseOut != 19_608 {
		t.Errorf("Expected base_amount_out 19608, got %d", ev.BaseOut)
	}
	if ev.MaxQuoteIn != 10_050 {
		t.Errorf("Expected max_quote_amount_in 10050, got %d", ev.MaxQuoteIn)
	}
	if ev.Slot != 345_678_901 {
		t.Errorf("Expected slot to carry over, got %d", ev.Slot)
	}

	if ev.Pool == nil {
		t.Fatal("Expected pool info")
	}
	if ev.Pool.PoolID != testPool {
		t.Errorf("Expected pool id %s, got %s", testPool, ev.Pool.PoolID)
	}
	if ev.Pool.BaseMint != testBaseMint || ev.Pool.QuoteMint != venue.SOLMint {
		t.Errorf("Unexpected mints: %s / %s", ev.Pool.BaseMint, ev.Pool.QuoteMint)
	}
	if ev.Pool.PoolBaseAccount != testPoolBase || ev.Pool.PoolQuoteAccount != testPoolQuote {
		t.Errorf("Unexpected pool accounts: %s / %s", ev.Pool.PoolBaseAccount, ev.Pool.PoolQuoteAccount)
	}
	if ev.Pool.BaseReserve != 1_000_000 || ev.Pool.QuoteReserve != 500_000 {
		t.Errorf("Unexpected reserves: %d / %d", ev.Pool.BaseReserve, ev.Pool.QuoteReserve)
	}

	if ev.Mint != testBaseMint {
		t.Errorf("Expected mint from pool base mint, got %s", ev.Mint)
	}
	if ev.TokenAmount != 19.608 {
		t.Errorf("Expected actor-owned token amount 19.608, got %v", ev.TokenAmount)
	}
}

func TestClassifySell(t *testing.T) {
	c := New(venue.DefaultRegistry())

	logs := []string{
		"Program " + venue.PumpSwapProgram + " invoke [1]",
		"Program log: Instruction: Sell",
		"Program data: U2VsbEV2ZW50AAAA",
		"Program log: base_amount_in: 19608",
		"Program log: min_quote_amount_out: 9950",
	}
	ev, err := c.Classify(swapRecord(logs))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if ev.Kind != domain.EventSwapSell {
		t.Fatalf("Expected SWAP_SELL, got %s", ev.Kind)
	}
	if ev.BaseIn != 19_608 {
		t.Errorf("Expected base_amount_in 19608, got %d", ev.BaseIn)
	}
	if ev.MinQuoteOut != 9_950 {
		t.Errorf("Expected min_quote_amount_out 9950, got %d", ev.MinQuoteOut)
	}
	if ev.BaseOut != 0 || ev.MaxQuoteIn != 0 {
		t.Errorf("Buy fields must stay zero on a sell, got %d/%d", ev.BaseOut, ev.MaxQuoteIn)
	}
	if ev.Pool == nil || ev.Mint != testBaseMint {
		t.Errorf("Expected pool-derived mint, got pool=%v mint=%s", ev.Pool, ev.Mint)
	}
}

func TestClassifyArbitrage(t *testing.T) {
	c := New(venue.DefaultRegistry())

	rec := swapRecord([]string{
		"Program " + venue.PumpSwapProgram + " invoke [1]",
		"Program log: ArbitrageEvent",
		"Program log: source_dex: pumpswap",
		"Program log: target_dex: raydium_amm",
		"Program log: price_difference: 3.0",
		"Program log: expected_profit: 2.85",
		"Program log: token_mint: " + testBaseMint,
		"Program log: token_mint: ignored-second-occurrence",
	})
	ev, err := c.Classify(rec)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if ev.Kind != domain.EventArbitrage {
		t.Fatalf("Expected ARBITRAGE, got %s", ev.Kind)
	}
	if ev.SourceVenue != "pumpswap" || ev.TargetVenue != "raydium_amm" {
		t.Errorf("Unexpected venues: %s -> %s", ev.SourceVenue, ev.TargetVenue)
	}
	if ev.PriceDifference != 3.0 {
		t.Errorf("Expected price_difference 3.0, got %v", ev.PriceDifference)
	}
	if ev.ExpectedProfit != 2.85 {
		t.Errorf("Expected expected_profit 2.85, got %v", ev.ExpectedProfit)
	}
	if ev.Mint != testBaseMint {
		t.Errorf("Expected first token_mint to win, got %s", ev.Mint)
	}
	if ev.Pool != nil {
		t.Error("Arbitrage events carry no pool info")
	}
	if ev.TokenAmount != 0 {
		t.Errorf("Arbitrage events carry no token amount, got %v", ev.TokenAmount)
	}
}

func TestClassifyNamedEventFallback(t *testing.T) {
	c := New(venue.DefaultRegistry())

	// No instruction-name markers; the venue program line plus a named
	// event decides.
	logs := []string{
		"Program " + venue.RaydiumAMMProgram + " invoke [1]",
		"Program log: BuyEvent mint=" + testBaseMint,
	}
	ev, err := c.Classify(swapRecord(logs))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.Kind != domain.EventSwapBuy {
		t.Errorf("Expected SWAP_BUY via fallback, got %s", ev.Kind)
	}

	logs[1] = "Program log: SellEvent"
	ev, err = c.Classify(swapRecord(logs))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.Kind != domain.EventSwapSell {
		t.Errorf("Expected SWAP_SELL via fallback, got %s", ev.Kind)
	}
}

func TestClassifyMarkerNeedsProgramData(t *testing.T) {
	c := New(venue.DefaultRegistry())

	// The instruction marker alone is not definitive without an event
	// payload somewhere in the line set.
	logs := []string{
		"Program log: Instruction: Buy",
	}
	if _, err := c.Classify(swapRecord(logs)); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("Expected ErrUnrecognized, got %v", err)
	}
}

func TestClassifyErrors(t *testing.T) {
	c := New(venue.DefaultRegistry())

	if _, err := c.Classify(nil); !errors.Is(err, ErrMissingTransaction) {
		t.Errorf("Expected ErrMissingTransaction for nil record, got %v", err)
	}

	rec := swapRecord([]string{"Program log: Instruction: Transfer"})
	if _, err := c.Classify(rec); !errors.Is(err, ErrUnrecognized) {
		t.Errorf("Expected ErrUnrecognized, got %v", err)
	}

	rec = swapRecord(buyLogs())
	rec.RecentBlockhash = ""
	if _, err := c.Classify(rec); !errors.Is(err, ErrMissingBlockhash) {
		t.Errorf("Expected ErrMissingBlockhash, got %v", err)
	}
}

func TestClassifyValueParsing(t *testing.T) {
	c := New(venue.DefaultRegistry())

	// An unparseable value is ignored; a later parseable occurrence wins.
	logs := append(buyLogs(),
		"Program log: base_amount_out: not-a-number",
		"Program log: base_amount_out: 20000",
	)
	ev, err := c.Classify(swapRecord(logs))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.BaseOut != 20_000 {
		t.Errorf("Expected last parseable value 20000, got %d", ev.BaseOut)
	}

	// Only unparseable values leave the field zero without failing.
	logs = []string{
		"Program " + venue.PumpSwapProgram + " invoke [1]",
		"Program log: Instruction: Buy",
		"Program data: AAAA",
		"Program log: base_amount_out: garbage",
	}
	ev, err = c.Classify(swapRecord(logs))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.BaseOut != 0 {
		t.Errorf("Expected absent field to stay zero, got %d", ev.BaseOut)
	}
}

func TestClassifyWithoutVenueInstruction(t *testing.T) {
	c := New(venue.DefaultRegistry())

	rec := swapRecord(buyLogs())
	rec.Instructions = []domain.CompiledInstruction{
		{ProgramIDIndex: 2, Accounts: []int{1, 6, 7}}, // not a venue program
	}
	ev, err := c.Classify(rec)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.Pool != nil {
		t.Errorf("Expected no pool info, got %+v", ev.Pool)
	}
	if ev.Mint != "" {
		t.Errorf("Expected empty mint without pool info, got %s", ev.Mint)
	}
}

func TestClassifyShortAccountList(t *testing.T) {
	c := New(venue.DefaultRegistry())

	// Venue instruction with too few accounts cannot yield a base mint, so
	// there is no usable pool.
	rec := swapRecord(buyLogs())
	rec.Instructions = []domain.CompiledInstruction{
		{ProgramIDIndex: 3, Accounts: []int{1, 6}},
	}
	ev, err := c.Classify(rec)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if ev.Pool != nil {
		t.Errorf("Expected no pool info for short account list, got %+v", ev.Pool)
	}
}
