package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeExecution // keyed by execution ID
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.TradeExecution),
	}
}

// cloneExecution copies an execution including the nullable error detail.
func cloneExecution(x *domain.TradeExecution) *domain.TradeExecution {
	copy := *x
	if x.Error != nil {
		msg := *x.Error
		copy.Error = &msg
	}
	return &copy
}

// Insert adds a new execution outcome. Returns ErrDuplicateKey if the id exists.
func (s *ExecutionStore) Insert(_ context.Context, x *domain.TradeExecution) error {
	if x == nil || x.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[x.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[x.ID] = cloneExecution(x)
	return nil
}

// GetByMint retrieves all executions for a mint, ordered by executed_at ASC.
func (s *ExecutionStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeExecution
	for _, x := range s.data {
		if x.Mint == mint {
			result = append(result, cloneExecution(x))
		}
	}

	sortExecutions(result)
	return result, nil
}

// GetAll retrieves all executions, ordered by executed_at ASC.
func (s *ExecutionStore) GetAll(_ context.Context) ([]*domain.TradeExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeExecution, 0, len(s.data))
	for _, x := range s.data {
		result = append(result, cloneExecution(x))
	}

	sortExecutions(result)
	return result, nil
}

func sortExecutions(xs []*domain.TradeExecution) {
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].ExecutedAt != xs[j].ExecutedAt {
			return xs[i].ExecutedAt < xs[j].ExecutedAt
		}
		return xs[i].ID < xs[j].ID
	})
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)
