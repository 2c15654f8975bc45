package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const executionColumns = `
	id, mint, side, venue, signature,
	quote_amount, base_amount, price, status, error, executed_at`

// Insert adds a new execution outcome. Returns ErrDuplicateKey if the id exists.
func (s *ExecutionStore) Insert(ctx context.Context, x *domain.TradeExecution) error {
	if x == nil || x.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_executions (` + executionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		x.ID, x.Mint, string(x.Side), x.Venue, x.Signature,
		numericFromUint64(x.QuoteAmount), numericFromUint64(x.BaseAmount),
		x.Price, string(x.Status), x.Error, x.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade execution: %w", err)
	}
	return nil
}

// GetByMint retrieves all executions for a mint, ordered by executed_at ASC.
func (s *ExecutionStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM trade_executions
		WHERE mint = $1
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trade executions by mint: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// GetAll retrieves all executions, ordered by executed_at ASC.
func (s *ExecutionStore) GetAll(ctx context.Context) ([]*domain.TradeExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM trade_executions
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trade executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// scanExecution scans a single row into a TradeExecution.
func scanExecution(row pgx.Row) (*domain.TradeExecution, error) {
	var (
		x                       domain.TradeExecution
		quoteAmount, baseAmount pgtype.Numeric
	)

	err := row.Scan(
		&x.ID, &x.Mint, &x.Side, &x.Venue, &x.Signature,
		&quoteAmount, &baseAmount, &x.Price, &x.Status, &x.Error, &x.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	x.QuoteAmount = uint64FromNumeric(quoteAmount)
	x.BaseAmount = uint64FromNumeric(baseAmount)

	return &x, nil
}

// scanExecutions scans multiple rows into a slice of TradeExecution.
func scanExecutions(rows pgx.Rows) ([]*domain.TradeExecution, error) {
	var executions []*domain.TradeExecution

	for rows.Next() {
		x, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade execution row: %w", err)
		}
		executions = append(executions, x)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade execution rows: %w", err)
	}

	return executions, nil
}
