package venue

import "testing"

func TestDefaultRegistryLookups(t *testing.T) {
	r := DefaultRegistry()

	if got := len(r.All()); got != 7 {
		t.Fatalf("Expected 7 venues, got %d", got)
	}

	v := r.ByProgramID(PumpSwapProgram)
	if v == nil || v.Name != "pumpswap" {
		t.Fatalf("Expected pumpswap by program id, got %+v", v)
	}
	if v.Discovery.MintOffset != 8 || v.Discovery.AccountSize != 0 {
		t.Errorf("Unexpected pumpswap scan params: %+v", v.Discovery)
	}

	v = r.ByName("raydium_amm")
	if v == nil || v.ProgramID != RaydiumAMMProgram {
		t.Fatalf("Expected raydium_amm by name, got %+v", v)
	}
	if v.Discovery.MintOffset != 200 || v.Discovery.AccountSize != 752 {
		t.Errorf("Unexpected raydium_amm scan params: %+v", v.Discovery)
	}

	if r.ByProgramID("unknownProgram111111111111111111111111111111") != nil {
		t.Error("Expected nil for unknown program id")
	}
	if r.ByName("serum") != nil {
		t.Error("Expected nil for unknown name")
	}
}

func TestDefaultRegistrySwapOffsets(t *testing.T) {
	// Pool extraction reads instruction accounts at fixed positions shared
	// by all venues.
	for _, v := range DefaultRegistry().All() {
		o := v.Offsets
		if o.PoolID != 0 || o.BaseMint != 3 || o.QuoteMint != 4 || o.PoolBase != 7 || o.PoolQuote != 8 {
			t.Errorf("%s: unexpected account offsets %+v", v.Name, o)
		}
	}
}

func TestDetectInLogs(t *testing.T) {
	r := DefaultRegistry()

	logs := []string{
		"Program ComputeBudget111111111111111111111111111111 invoke [1]",
		"Program pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA invoke [1]",
		"Program log: Instruction: Buy",
	}
	v := r.DetectInLogs(logs)
	if v == nil || v.Name != "pumpswap" {
		t.Fatalf("Expected pumpswap, got %+v", v)
	}

	logs = []string{
		"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [2]",
	}
	v = r.DetectInLogs(logs)
	if v == nil || v.Name != "raydium_amm" {
		t.Fatalf("Expected raydium_amm, got %+v", v)
	}

	if v := r.DetectInLogs([]string{"Program log: Instruction: Transfer"}); v != nil {
		t.Errorf("Expected nil for unrecognized logs, got %+v", v)
	}
	if v := r.DetectInLogs(nil); v != nil {
		t.Errorf("Expected nil for empty logs, got %+v", v)
	}
}

func TestProgramIDsOrder(t *testing.T) {
	ids := DefaultRegistry().ProgramIDs()
	if len(ids) != 7 {
		t.Fatalf("Expected 7 program ids, got %d", len(ids))
	}
	if ids[0] != PumpSwapProgram {
		t.Errorf("Expected pumpswap first, got %s", ids[0])
	}
	if ids[6] != MeteoraPoolsProgram {
		t.Errorf("Expected meteora_pools last, got %s", ids[6])
	}
}
