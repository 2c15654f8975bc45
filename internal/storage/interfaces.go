package storage

import (
	"context"

	"solana-copyarb/internal/domain"
)

// TradeEventStore provides access to trade_events storage.
type TradeEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, e *domain.TradeEvent) error

	// GetBySignature retrieves an event by transaction signature.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TradeEvent, error)

	// GetByMint retrieves all events for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error)

	// GetRecent retrieves up to limit events, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.TradeEvent, error)
}

// ExecutionStore provides access to trade_executions storage.
type ExecutionStore interface {
	// Insert adds a new execution outcome. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, x *domain.TradeExecution) error

	// GetByMint retrieves all executions for a mint, ordered by executed_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeExecution, error)

	// GetAll retrieves all executions, ordered by executed_at ASC.
	GetAll(ctx context.Context) ([]*domain.TradeExecution, error)
}

// OpportunityStore provides access to arb_opportunities storage.
type OpportunityStore interface {
	// Insert appends a detected opportunity.
	Insert(ctx context.Context, o *domain.Opportunity) error

	// GetByMint retrieves all opportunities for a mint, in insertion order.
	GetByMint(ctx context.Context, mint string) ([]*domain.Opportunity, error)

	// GetAll retrieves all opportunities, in insertion order.
	GetAll(ctx context.Context) ([]*domain.Opportunity, error)
}

// PriceSampleStore provides access to price_samples storage.
type PriceSampleStore interface {
	// InsertBulk appends a batch of samples.
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.PriceSample, error)

	// GetByMintVenue retrieves samples for a mint on one venue, ordered by timestamp ASC.
	GetByMintVenue(ctx context.Context, mint, venue string) ([]*domain.PriceSample, error)
}
