package clickhouse

import (
	"context"
	"fmt"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
// Samples are append-only observations; MergeTree enforces no uniqueness
// and the monitoring loop never needs it.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk appends a batch of samples. The whole batch is validated
// before anything is written.
func (s *PriceSampleStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	for _, p := range samples {
		if p == nil || p.Mint == "" || p.Venue == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (
			mint, venue, pool_id, price, liquidity, slot, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		err = batch.Append(
			p.Mint, p.Venue, p.PoolID,
			p.Price, p.Liquidity, p.Slot, p.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceSample, error) {
	query := `
		SELECT mint, venue, pool_id, price, liquidity, slot, timestamp_ms
		FROM price_samples
		WHERE mint = ?
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetByMintVenue retrieves samples for a mint on one venue, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByMintVenue(ctx context.Context, mint, venue string) ([]*domain.PriceSample, error) {
	query := `
		SELECT mint, venue, pool_id, price, liquidity, slot, timestamp_ms
		FROM price_samples
		WHERE mint = ? AND venue = ?
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, venue)
	if err != nil {
		return nil, fmt.Errorf("query by mint and venue: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceSamples scans multiple rows into a slice of PriceSample.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample

		err := rows.Scan(
			&p.Mint, &p.Venue, &p.PoolID,
			&p.Price, &p.Liquidity, &p.Slot, &p.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
