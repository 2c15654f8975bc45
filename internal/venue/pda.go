package venue

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var errNoViableBump = errors.New("unable to find a viable program address bump")

// FindProgramAddress derives the program address for the given seeds,
// walking the bump down from 255 until the hash lands off the ed25519
// curve. Returns the base58 address and the bump that produced it.
func FindProgramAddress(seeds [][]byte, programID string) (string, byte, error) {
	program, err := decodePubkey(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, program...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), bump, nil
		}
	}

	return "", 0, errNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

func decodePubkey(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %q decodes to %d bytes, want 32", address, len(raw))
	}
	return raw, nil
}

// DeriveAssociatedTokenAccount returns the associated token account of
// wallet for mint under the SPL token program.
func DeriveAssociatedTokenAccount(wallet, mint string) (string, error) {
	walletRaw, err := decodePubkey(wallet)
	if err != nil {
		return "", fmt.Errorf("decode wallet: %w", err)
	}
	mintRaw, err := decodePubkey(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	tokenRaw, err := decodePubkey(TokenProgram)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{walletRaw, tokenRaw, mintRaw}, AssociatedTokenProgram)
	return addr, err
}

// DerivePumpSwapPool returns the canonical pool address for a base/quote
// pair. Seeds are the literal "pool", a little-endian u16 pool index of
// zero, the default creator key, then both mints.
func DerivePumpSwapPool(baseMint, quoteMint string) (string, error) {
	baseRaw, err := decodePubkey(baseMint)
	if err != nil {
		return "", fmt.Errorf("decode base mint: %w", err)
	}
	quoteRaw, err := decodePubkey(quoteMint)
	if err != nil {
		return "", fmt.Errorf("decode quote mint: %w", err)
	}

	creator := make([]byte, 32)
	addr, _, err := FindProgramAddress([][]byte{
		[]byte("pool"),
		{0, 0},
		creator,
		baseRaw,
		quoteRaw,
	}, PumpSwapProgram)
	return addr, err
}

// DerivePumpSwapLPMint returns the LP mint address of a pool.
func DerivePumpSwapLPMint(poolID string) (string, error) {
	poolRaw, err := decodePubkey(poolID)
	if err != nil {
		return "", fmt.Errorf("decode pool id: %w", err)
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte("pool_lp_mint"), poolRaw}, PumpSwapProgram)
	return addr, err
}
