package venue

import (
	"encoding/binary"
	"fmt"
)

// Anchor discriminators of the PumpSwap swap instructions.
var (
	buyDiscriminator  = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// AccountMeta is one entry of an instruction's account list.
type AccountMeta struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Instruction is a program call ready for signing.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// SwapAccounts names every address a PumpSwap swap touches. The user token
// accounts are the owner's ATAs for the two mints.
type SwapAccounts struct {
	PoolID           string
	Owner            string
	BaseMint         string
	QuoteMint        string
	UserBaseAccount  string
	UserQuoteAccount string
	PoolBaseAccount  string
	PoolQuoteAccount string
}

// BuyInstruction builds the PumpSwap buy call: pay up to maxQuoteIn of the
// quote token for baseOut of the base token.
func BuyInstruction(acc SwapAccounts, baseOut, maxQuoteIn uint64) (Instruction, error) {
	return swapInstruction(acc, buyDiscriminator, baseOut, maxQuoteIn)
}

// SellInstruction builds the PumpSwap sell call: sell baseIn for at least
// minQuoteOut of the quote token.
func SellInstruction(acc SwapAccounts, baseIn, minQuoteOut uint64) (Instruction, error) {
	return swapInstruction(acc, sellDiscriminator, baseIn, minQuoteOut)
}

func swapInstruction(acc SwapAccounts, discriminator [8]byte, baseAmount, quoteAmount uint64) (Instruction, error) {
	feeRecipientATA, err := DeriveAssociatedTokenAccount(pumpFeeRecipient, acc.QuoteMint)
	if err != nil {
		return Instruction{}, fmt.Errorf("derive fee recipient token account: %w", err)
	}

	data := make([]byte, 0, 24)
	data = append(data, discriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, baseAmount)
	data = binary.LittleEndian.AppendUint64(data, quoteAmount)

	return Instruction{
		ProgramID: PumpSwapProgram,
		Accounts: []AccountMeta{
			{Pubkey: acc.PoolID},
			{Pubkey: acc.Owner, Signer: true, Writable: true},
			{Pubkey: pumpGlobalConfig},
			{Pubkey: acc.BaseMint},
			{Pubkey: acc.QuoteMint},
			{Pubkey: acc.UserBaseAccount, Writable: true},
			{Pubkey: acc.UserQuoteAccount, Writable: true},
			{Pubkey: acc.PoolBaseAccount, Writable: true},
			{Pubkey: acc.PoolQuoteAccount, Writable: true},
			{Pubkey: pumpFeeRecipient},
			{Pubkey: feeRecipientATA, Writable: true},
			{Pubkey: TokenProgram},
			{Pubkey: TokenProgram},
			{Pubkey: SystemProgram},
			{Pubkey: AssociatedTokenProgram},
			{Pubkey: pumpEventAuthority},
			{Pubkey: PumpSwapProgram},
		},
		Data: data,
	}, nil
}

// CreateATAInstruction builds the idempotent associated-token-account
// create call for wallet and mint, funded by payer.
func CreateATAInstruction(payer, wallet, mint string) (Instruction, error) {
	ata, err := DeriveAssociatedTokenAccount(wallet, mint)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		ProgramID: AssociatedTokenProgram,
		Accounts: []AccountMeta{
			{Pubkey: payer, Signer: true, Writable: true},
			{Pubkey: ata, Writable: true},
			{Pubkey: wallet},
			{Pubkey: mint},
			{Pubkey: SystemProgram},
			{Pubkey: TokenProgram},
		},
		Data: []byte{1}, // CreateIdempotent
	}, nil
}

// CloseAccountInstruction builds the SPL token close-account call,
// refunding the rent lamports to destination.
func CloseAccountInstruction(account, destination, owner string) Instruction {
	return Instruction{
		ProgramID: TokenProgram,
		Accounts: []AccountMeta{
			{Pubkey: account, Writable: true},
			{Pubkey: destination, Writable: true},
			{Pubkey: owner, Signer: true},
		},
		Data: []byte{9}, // CloseAccount
	}
}
