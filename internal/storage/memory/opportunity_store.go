package memory

import (
	"context"
	"sync"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// OpportunityStore is an in-memory implementation of storage.OpportunityStore.
// Opportunities have no natural key; the store is append-only and preserves
// insertion order.
type OpportunityStore struct {
	mu   sync.RWMutex
	data []*domain.Opportunity
}

// NewOpportunityStore creates a new in-memory opportunity store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{}
}

// Insert appends a detected opportunity.
func (s *OpportunityStore) Insert(_ context.Context, o *domain.Opportunity) error {
	if o == nil || o.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *o
	s.data = append(s.data, &copy)
	return nil
}

// GetByMint retrieves all opportunities for a mint, in insertion order.
func (s *OpportunityStore) GetByMint(_ context.Context, mint string) ([]*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Opportunity
	for _, o := range s.data {
		if o.TokenMint == mint {
			copy := *o
			result = append(result, &copy)
		}
	}

	return result, nil
}

// GetAll retrieves all opportunities, in insertion order.
func (s *OpportunityStore) GetAll(_ context.Context) ([]*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Opportunity, 0, len(s.data))
	for _, o := range s.data {
		copy := *o
		result = append(result, &copy)
	}

	return result, nil
}

var _ storage.OpportunityStore = (*OpportunityStore)(nil)
