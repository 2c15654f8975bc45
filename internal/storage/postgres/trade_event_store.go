package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using PostgreSQL.
type TradeEventStore struct {
	pool *Pool
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(pool *Pool) *TradeEventStore {
	return &TradeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

const tradeEventColumns = `
	signature, kind, slot, recent_blockhash, actor, mint,
	pool_id, pool_base_mint, pool_quote_mint, pool_base_account, pool_quote_account,
	base_reserve, quote_reserve,
	token_amount, timestamp_ms,
	base_out, max_quote_in, base_in, min_quote_out,
	source_venue, target_venue, price_difference, expected_profit`

// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
func (s *TradeEventStore) Insert(ctx context.Context, e *domain.TradeEvent) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_events (` + tradeEventColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13,
			$14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23
		)
	`

	var (
		poolID, baseMint, quoteMint *string
		baseAccount, quoteAccount   *string
		baseReserve, quoteReserve   pgtype.Numeric
	)
	if e.Pool != nil {
		poolID = &e.Pool.PoolID
		baseMint = &e.Pool.BaseMint
		quoteMint = &e.Pool.QuoteMint
		baseAccount = &e.Pool.PoolBaseAccount
		quoteAccount = &e.Pool.PoolQuoteAccount
		baseReserve = numericFromUint64(e.Pool.BaseReserve)
		quoteReserve = numericFromUint64(e.Pool.QuoteReserve)
	}

	_, err := s.pool.Exec(ctx, query,
		e.Signature, string(e.Kind), int64(e.Slot), e.RecentBlockhash, e.Actor, e.Mint,
		poolID, baseMint, quoteMint, baseAccount, quoteAccount,
		baseReserve, quoteReserve,
		e.TokenAmount, e.Timestamp,
		numericFromUint64(e.BaseOut), numericFromUint64(e.MaxQuoteIn),
		numericFromUint64(e.BaseIn), numericFromUint64(e.MinQuoteOut),
		e.SourceVenue, e.TargetVenue, e.PriceDifference, e.ExpectedProfit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade event: %w", err)
	}
	return nil
}

// GetBySignature retrieves an event by transaction signature.
// Returns ErrNotFound if not exists.
func (s *TradeEventStore) GetBySignature(ctx context.Context, signature string) (*domain.TradeEvent, error) {
	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events
		WHERE signature = $1
	`

	row := s.pool.QueryRow(ctx, query, signature)
	e, err := scanTradeEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade event by signature: %w", err)
	}
	return e, nil
}

// GetByMint retrieves all events for a mint, ordered by timestamp ASC.
func (s *TradeEventStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events
		WHERE mint = $1
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trade events by mint: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetRecent retrieves up to limit events, newest first.
func (s *TradeEventStore) GetRecent(ctx context.Context, limit int) ([]*domain.TradeEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + tradeEventColumns + `
		FROM trade_events
		ORDER BY timestamp_ms DESC, slot DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent trade events: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// scanTradeEvent scans a single row into a TradeEvent.
func scanTradeEvent(row pgx.Row) (*domain.TradeEvent, error) {
	var (
		e                           domain.TradeEvent
		slot                        int64
		poolID, baseMint, quoteMint *string
		baseAccount, quoteAccount   *string
		baseReserve, quoteReserve   pgtype.Numeric
		baseOut, maxQuoteIn         pgtype.Numeric
		baseIn, minQuoteOut         pgtype.Numeric
	)

	err := row.Scan(
		&e.Signature, &e.Kind, &slot, &e.RecentBlockhash, &e.Actor, &e.Mint,
		&poolID, &baseMint, &quoteMint, &baseAccount, &quoteAccount,
		&baseReserve, &quoteReserve,
		&e.TokenAmount, &e.Timestamp,
		&baseOut, &maxQuoteIn, &baseIn, &minQuoteOut,
		&e.SourceVenue, &e.TargetVenue, &e.PriceDifference, &e.ExpectedProfit,
	)
	if err != nil {
		return nil, err
	}

	e.Slot = uint64(slot)
	e.BaseOut = uint64FromNumeric(baseOut)
	e.MaxQuoteIn = uint64FromNumeric(maxQuoteIn)
	e.BaseIn = uint64FromNumeric(baseIn)
	e.MinQuoteOut = uint64FromNumeric(minQuoteOut)
	if poolID != nil {
		e.Pool = &domain.PoolInfo{
			PoolID:           *poolID,
			BaseMint:         derefString(baseMint),
			QuoteMint:        derefString(quoteMint),
			PoolBaseAccount:  derefString(baseAccount),
			PoolQuoteAccount: derefString(quoteAccount),
			BaseReserve:      uint64FromNumeric(baseReserve),
			QuoteReserve:     uint64FromNumeric(quoteReserve),
		}
	}

	return &e, nil
}

// scanTradeEvents scans multiple rows into a slice of TradeEvent.
func scanTradeEvents(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	var events []*domain.TradeEvent

	for rows.Next() {
		e, err := scanTradeEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return events, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
