package venue

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
)

func TestFindProgramAddress(t *testing.T) {
	seeds := [][]byte{[]byte("pool"), {0, 0}}

	addr, bump, err := FindProgramAddress(seeds, PumpSwapProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress failed: %v", err)
	}
	if bump == 0 {
		t.Error("Expected a non-zero bump")
	}

	raw, err := base58.Decode(addr)
	if err != nil {
		t.Fatalf("Derived address is not valid base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("Expected 32-byte address, got %d bytes", len(raw))
	}
	if isOnCurve(raw) {
		t.Error("Derived address must be off the ed25519 curve")
	}

	// Derivation is deterministic.
	again, bump2, err := FindProgramAddress(seeds, PumpSwapProgram)
	if err != nil {
		t.Fatalf("Second derivation failed: %v", err)
	}
	if again != addr || bump2 != bump {
		t.Errorf("Derivation not deterministic: %s/%d vs %s/%d", addr, bump, again, bump2)
	}

	// Different seeds produce a different address.
	other, _, err := FindProgramAddress([][]byte{[]byte("pool"), {0, 1}}, PumpSwapProgram)
	if err != nil {
		t.Fatalf("Derivation with other seeds failed: %v", err)
	}
	if other == addr {
		t.Error("Different seeds produced the same address")
	}
}

func TestFindProgramAddress_BadProgramID(t *testing.T) {
	if _, _, err := FindProgramAddress(nil, "not-base58-0OIl"); err == nil {
		t.Error("Expected error for invalid program id")
	}
	if _, _, err := FindProgramAddress(nil, "abc"); err == nil {
		t.Error("Expected error for short program id")
	}
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if !isOnCurve(pub) {
		t.Error("A real ed25519 public key must be on the curve")
	}
	if isOnCurve([]byte{1, 2, 3}) {
		t.Error("Short input must not pass the curve check")
	}
}

func TestDeriveAssociatedTokenAccount(t *testing.T) {
	wallet := "62qc2CNXwrYqQScmEdiZFFAnJR262PxWEuNQtxfafNgV"
	mint := SOLMint

	ata, err := DeriveAssociatedTokenAccount(wallet, mint)
	if err != nil {
		t.Fatalf("DeriveAssociatedTokenAccount failed: %v", err)
	}
	if ata == wallet || ata == mint {
		t.Error("ATA must differ from its inputs")
	}

	again, err := DeriveAssociatedTokenAccount(wallet, mint)
	if err != nil {
		t.Fatalf("Second derivation failed: %v", err)
	}
	if again != ata {
		t.Errorf("ATA derivation not deterministic: %s vs %s", ata, again)
	}

	otherMint := "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	other, err := DeriveAssociatedTokenAccount(wallet, otherMint)
	if err != nil {
		t.Fatalf("Derivation for other mint failed: %v", err)
	}
	if other == ata {
		t.Error("Different mints produced the same ATA")
	}

	if _, err := DeriveAssociatedTokenAccount("bogus", mint); err == nil {
		t.Error("Expected error for invalid wallet address")
	}
}

func TestDerivePumpSwapPool(t *testing.T) {
	mint := "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

	pool, err := DerivePumpSwapPool(mint, SOLMint)
	if err != nil {
		t.Fatalf("DerivePumpSwapPool failed: %v", err)
	}

	lpMint, err := DerivePumpSwapLPMint(pool)
	if err != nil {
		t.Fatalf("DerivePumpSwapLPMint failed: %v", err)
	}
	if lpMint == pool {
		t.Error("LP mint must differ from the pool address")
	}

	otherPool, err := DerivePumpSwapPool(SOLMint, mint)
	if err != nil {
		t.Fatalf("Reversed derivation failed: %v", err)
	}
	if otherPool == pool {
		t.Error("Swapped mints produced the same pool address")
	}
}
