package domain

// TransactionRecord is the raw transaction payload delivered by the event
// stream: log lines plus the account/instruction lists needed to classify
// it. JSON tags match the on-disk record files replayed by cmd/replay.
type TransactionRecord struct {
	Signature         string                `json:"signature"`
	Slot              uint64                `json:"slot"`
	RecentBlockhash   string                `json:"recent_blockhash"`
	LogMessages       []string              `json:"log_messages"`
	AccountKeys       []string              `json:"account_keys"`
	Instructions      []CompiledInstruction `json:"instructions"`
	PostTokenBalances []TokenBalance        `json:"post_token_balances,omitempty"`
}

// CompiledInstruction references accounts by index into AccountKeys,
// mirroring the compiled transaction message layout.
type CompiledInstruction struct {
	ProgramIDIndex int    `json:"program_id_index"`
	Accounts       []int  `json:"accounts"`
	Data           []byte `json:"data,omitempty"`
}

// TokenBalance is one post-transaction token account balance entry.
type TokenBalance struct {
	AccountIndex int     `json:"account_index"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner"`
	Amount       float64 `json:"amount"` // ui amount, decimal adjusted
	Decimals     int     `json:"decimals"`
}

// ProgramID resolves the instruction's program address against the
// transaction's account keys. Returns "" when the index is out of range.
func (t *TransactionRecord) ProgramID(ix CompiledInstruction) string {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(t.AccountKeys) {
		return ""
	}
	return t.AccountKeys[ix.ProgramIDIndex]
}

// AccountAt resolves the i-th account of an instruction against the
// transaction's account keys. Returns "" when either index is out of range.
func (t *TransactionRecord) AccountAt(ix CompiledInstruction, i int) string {
	if i < 0 || i >= len(ix.Accounts) {
		return ""
	}
	idx := ix.Accounts[i]
	if idx < 0 || idx >= len(t.AccountKeys) {
		return ""
	}
	return t.AccountKeys[idx]
}
