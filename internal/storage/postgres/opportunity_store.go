package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// OpportunityStore implements storage.OpportunityStore using PostgreSQL.
// Rows have no natural key; a serial id preserves insertion order.
type OpportunityStore struct {
	pool *Pool
}

// NewOpportunityStore creates a new OpportunityStore.
func NewOpportunityStore(pool *Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OpportunityStore = (*OpportunityStore)(nil)

const opportunityColumns = `
	timestamp, token_mint,
	buy_dex, buy_price, buy_pool,
	sell_dex, sell_price, sell_pool,
	price_difference_pct, min_liquidity`

// Insert appends a detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, o *domain.Opportunity) error {
	if o == nil || o.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO arb_opportunities (` + opportunityColumns + `
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7, $8,
			$9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		o.Timestamp, o.TokenMint,
		o.BuyDex, o.BuyPrice, o.BuyPool,
		o.SellDex, o.SellPrice, o.SellPool,
		o.PriceDifferencePct, o.MinLiquidity,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// GetByMint retrieves all opportunities for a mint, in insertion order.
func (s *OpportunityStore) GetByMint(ctx context.Context, mint string) ([]*domain.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM arb_opportunities
		WHERE token_mint = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get opportunities by mint: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// GetAll retrieves all opportunities, in insertion order.
func (s *OpportunityStore) GetAll(ctx context.Context) ([]*domain.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM arb_opportunities
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// scanOpportunities scans multiple rows into a slice of Opportunity.
func scanOpportunities(rows pgx.Rows) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity

	for rows.Next() {
		var o domain.Opportunity

		err := rows.Scan(
			&o.Timestamp, &o.TokenMint,
			&o.BuyDex, &o.BuyPrice, &o.BuyPool,
			&o.SellDex, &o.SellPrice, &o.SellPool,
			&o.PriceDifferencePct, &o.MinLiquidity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}

		opps = append(opps, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunity rows: %w", err)
	}

	return opps, nil
}
