package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-copyarb/internal/domain"
)

// ComputeExecutionID computes a deterministic execution id using SHA256.
// Formula: SHA256(mint|side|signature|executed_at)
// Returns hex-encoded hash (64 characters).
//
// Failed attempts have no broadcast signature; the empty string keeps the
// id stable for retries at different timestamps.
func ComputeExecutionID(
	mint string,
	side domain.TradeSide,
	signature string,
	executedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		mint,
		string(side),
		signature,
		executedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
