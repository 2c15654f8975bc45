package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account info. Returns nil when the
	// account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountBalance retrieves an SPL token account balance in
	// smallest units plus the mint's decimals.
	GetTokenAccountBalance(ctx context.Context, account string) (amount uint64, decimals int, err error)

	// GetProgramAccounts scans all accounts owned by a program, filtered
	// server-side by size and byte prefix.
	GetProgramAccounts(ctx context.Context, programID string, filters []AccountFilter) ([]ProgramAccount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (uint64, error)
}

// Transaction represents a confirmed Solana transaction with the fields
// event classification consumes.
type Transaction struct {
	Slot      uint64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PostTokenBalances []PostTokenBalance
}

// TransactionMessage contains the compiled transaction message.
type TransactionMessage struct {
	AccountKeys     []string
	RecentBlockhash string
	Instructions    []MessageInstruction
}

// MessageInstruction is one compiled instruction. Data is base58 as
// delivered by the json transaction encoding.
type MessageInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// PostTokenBalance is one post-transaction SPL token balance.
type PostTokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
	Decimals     int
}
