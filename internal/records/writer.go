// Package records persists raw transaction payloads and detected arbitrage
// opportunities as JSON files for offline analysis and replay.
package records

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/observability"
)

// UnknownVenueDir receives records whose logs matched no registered venue.
const UnknownVenueDir = "unknown"

// arbDir receives the per-opportunity JSON records.
const arbDir = "arbitrage"

// recordStamp is the compact UTC timestamp embedded in record filenames.
const recordStamp = "20060102150405"

// Writer writes record files under a base directory, one subdirectory per
// venue plus one for arbitrage opportunities. Safe for concurrent use; the
// filesystem provides the only coordination it needs.
type Writer struct {
	dir    string
	logger *log.Logger
	now    func() time.Time
}

// Options configures a Writer.
type Options struct {
	// Dir is the base records directory.
	Dir string
	// Logger receives write failures. Defaults to log.Default().
	Logger *log.Logger
	// Now overrides the filename clock. Defaults to time.Now.
	Now func() time.Time
}

// NewWriter creates a record writer rooted at opts.Dir.
func NewWriter(opts Options) *Writer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Writer{dir: opts.Dir, logger: logger, now: now}
}

// WriteTransaction writes the full record as pretty JSON plus its raw log
// lines as a sibling .log file, both named <signature>_<stamp> under the
// venue's subdirectory. Pass UnknownVenueDir when no venue matched.
// Failures are logged and returned; callers treat them as non-fatal.
func (w *Writer) WriteTransaction(venueName string, rec *domain.TransactionRecord) error {
	if venueName == "" {
		venueName = UnknownVenueDir
	}

	dir := filepath.Join(w.dir, venueName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.logger.Printf("records: create %s: %v", dir, err)
		return fmt.Errorf("create record dir: %w", err)
	}

	stamp := w.now().UTC().Format(recordStamp)
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", rec.Signature, stamp))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transaction record: %w", err)
	}
	if err := os.WriteFile(base+".json", data, 0644); err != nil {
		w.logger.Printf("records: write %s.json: %v", base, err)
		return fmt.Errorf("write transaction record: %w", err)
	}

	logs := strings.Join(rec.LogMessages, "\n")
	if err := os.WriteFile(base+".log", []byte(logs), 0644); err != nil {
		w.logger.Printf("records: write %s.log: %v", base, err)
		return fmt.Errorf("write transaction logs: %w", err)
	}
	observability.RecordFileWritten("transaction")
	return nil
}

// WriteOpportunity writes one arbitrage opportunity as pretty JSON named
// arb_<mint prefix>_<stamp>.json. The stamp comes from the opportunity's
// own Timestamp so the filename and the record always agree.
func (w *Writer) WriteOpportunity(op domain.Opportunity) error {
	dir := filepath.Join(w.dir, arbDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.logger.Printf("records: create %s: %v", dir, err)
		return fmt.Errorf("create record dir: %w", err)
	}

	stamp := op.Timestamp
	if stamp == "" {
		stamp = w.now().UTC().Format(recordStamp)
	}
	name := fmt.Sprintf("arb_%s_%s.json", mintPrefix(op.TokenMint), stamp)

	data, err := json.MarshalIndent(op, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal opportunity: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		w.logger.Printf("records: write %s: %v", path, err)
		return fmt.Errorf("write opportunity: %w", err)
	}
	observability.RecordFileWritten("opportunity")
	return nil
}

// Stamp formats t the way record filenames do.
func Stamp(t time.Time) string {
	return t.UTC().Format(recordStamp)
}

func mintPrefix(mint string) string {
	if len(mint) > 8 {
		return mint[:8]
	}
	return mint
}
