package stub

import (
	"context"
	"errors"

	"solana-copyarb/internal/solana"
)

// ErrNotFound is returned when a requested entity is not in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing. Populate the maps
// before handing it to concurrent code.
type RPCClient struct {
	Transactions    map[string]*solana.Transaction
	Accounts        map[string]*solana.AccountInfo
	Balances        map[string]TokenBalance
	ProgramAccounts map[string][]solana.ProgramAccount
	Slot            uint64
}

// TokenBalance is a stubbed token account balance.
type TokenBalance struct {
	Amount   uint64
	Decimals int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:    make(map[string]*solana.Transaction),
		Accounts:        make(map[string]*solana.AccountInfo),
		Balances:        make(map[string]TokenBalance),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetAccountInfo retrieves account info from the stub store. Missing
// accounts return nil like the real client.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	return c.Accounts[pubkey], nil
}

// GetTokenAccountBalance retrieves a token balance from the stub store.
// Missing accounts error like the real RPC does.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (uint64, int, error) {
	bal, ok := c.Balances[account]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return bal.Amount, bal.Decimals, nil
}

// GetProgramAccounts retrieves stubbed accounts for a program. Filters are
// ignored; tests pre-filter what they store.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, _ []solana.AccountFilter) ([]solana.ProgramAccount, error) {
	return c.ProgramAccounts[programID], nil
}

// GetSlot retrieves the stubbed slot.
func (c *RPCClient) GetSlot(_ context.Context) (uint64, error) {
	return c.Slot, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// SetBalance sets a token account balance in the stub store.
func (c *RPCClient) SetBalance(account string, amount uint64, decimals int) {
	c.Balances[account] = TokenBalance{Amount: amount, Decimals: decimals}
}

// SetAccount sets account info in the stub store.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.Accounts[pubkey] = info
}
