package solana

// AccountInfo is raw account state from getAccountInfo.
type AccountInfo struct {
	Lamports uint64
	Owner    string
	Data     []byte
}

// AccountFilter narrows a getProgramAccounts scan server-side. DataSize
// matches accounts of an exact byte length; Offset and Bytes add a memcmp
// prefix match at Offset. A zero-value Bytes disables the memcmp clause.
type AccountFilter struct {
	DataSize uint64
	Offset   uint64
	Bytes    []byte
}

// ProgramAccount is one account returned by getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}
