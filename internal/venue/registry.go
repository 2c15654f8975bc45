package venue

import "strings"

// Program addresses of the venues the engine recognizes.
const (
	PumpSwapProgram     = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	RaydiumAMMProgram   = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCLMMProgram  = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	RaydiumCPMMProgram  = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	WhirlpoolProgram    = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	MeteoraDLMMProgram  = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	MeteoraPoolsProgram = "Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB"
)

// Shared token-plumbing programs.
const (
	TokenProgram           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022Program       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	SystemProgram          = "11111111111111111111111111111111"
	SOLMint                = "So11111111111111111111111111111111111111112"
)

// Protocol accounts referenced by every PumpSwap swap.
const (
	pumpGlobalConfig   = "ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw"
	pumpFeeRecipient   = "62qc2CNXwrYqQScmEdiZFFAnJR262PxWEuNQtxfafNgV"
	pumpEventAuthority = "GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR"
)

// AccountOffsets maps swap-instruction account positions to pool roles.
// The positions are a per-venue contract with that venue's account
// ordering; they hold only for the venue's swap instructions.
type AccountOffsets struct {
	PoolID    int
	BaseMint  int
	QuoteMint int
	PoolBase  int
	PoolQuote int
}

// ScanParams drive getProgramAccounts pool discovery for a venue.
// MintOffset is the byte position of the base mint inside the pool account
// data. A zero AccountSize applies no dataSize filter.
type ScanParams struct {
	MintOffset  int
	AccountSize int
}

// Venue describes one recognized swap program.
type Venue struct {
	Name      string
	ProgramID string
	Offsets   AccountOffsets
	Discovery ScanParams
}

// Registry resolves venues by program address or name. Iteration order is
// the registration order, so discovery scans and log detection stay
// deterministic.
type Registry struct {
	venues    []Venue
	byProgram map[string]*Venue
	byName    map[string]*Venue
}

// NewRegistry builds a registry from the given venues.
func NewRegistry(venues ...Venue) *Registry {
	r := &Registry{
		venues:    venues,
		byProgram: make(map[string]*Venue, len(venues)),
		byName:    make(map[string]*Venue, len(venues)),
	}
	for i := range r.venues {
		v := &r.venues[i]
		r.byProgram[v.ProgramID] = v
		r.byName[v.Name] = v
	}
	return r
}

// DefaultRegistry returns the mainnet venues the engine trades against.
// Swap-instruction account positions are shared across venues; discovery
// offsets and account sizes are per venue.
func DefaultRegistry() *Registry {
	swap := AccountOffsets{PoolID: 0, BaseMint: 3, QuoteMint: 4, PoolBase: 7, PoolQuote: 8}
	return NewRegistry(
		Venue{Name: "pumpswap", ProgramID: PumpSwapProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 8}},
		Venue{Name: "raydium_amm", ProgramID: RaydiumAMMProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 200, AccountSize: 752}},
		Venue{Name: "raydium_clmm", ProgramID: RaydiumCLMMProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 300, AccountSize: 1544}},
		Venue{Name: "raydium_cpmm", ProgramID: RaydiumCPMMProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 100, AccountSize: 680}},
		Venue{Name: "whirlpool", ProgramID: WhirlpoolProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 200, AccountSize: 653}},
		Venue{Name: "meteora_dlmm", ProgramID: MeteoraDLMMProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 250, AccountSize: 904}},
		Venue{Name: "meteora_pools", ProgramID: MeteoraPoolsProgram, Offsets: swap, Discovery: ScanParams{MintOffset: 150, AccountSize: 944}},
	)
}

// ByProgramID returns the venue owning the program address, or nil.
func (r *Registry) ByProgramID(programID string) *Venue {
	return r.byProgram[programID]
}

// ByName returns the venue with the given name, or nil.
func (r *Registry) ByName(name string) *Venue {
	return r.byName[name]
}

// ProgramIDs lists the registered program addresses in registration order.
func (r *Registry) ProgramIDs() []string {
	ids := make([]string, len(r.venues))
	for i, v := range r.venues {
		ids[i] = v.ProgramID
	}
	return ids
}

// All returns the registered venues in registration order.
func (r *Registry) All() []Venue {
	out := make([]Venue, len(r.venues))
	copy(out, r.venues)
	return out
}

// DetectInLogs returns the first venue whose program address appears in the
// transaction log lines, or nil when no known venue is mentioned.
func (r *Registry) DetectInLogs(logs []string) *Venue {
	for _, line := range logs {
		for i := range r.venues {
			if strings.Contains(line, r.venues[i].ProgramID) {
				return &r.venues[i]
			}
		}
	}
	return nil
}
