package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by signature
}

// NewTradeEventStore creates a new in-memory trade event store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

// cloneEvent copies an event including the nested pool snapshot.
func cloneEvent(e *domain.TradeEvent) *domain.TradeEvent {
	copy := *e
	if e.Pool != nil {
		pool := *e.Pool
		copy.Pool = &pool
	}
	return &copy
}

// Insert adds a new event. Returns ErrDuplicateKey if the signature exists.
func (s *TradeEventStore) Insert(_ context.Context, e *domain.TradeEvent) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.Signature] = cloneEvent(e)
	return nil
}

// GetBySignature retrieves an event by transaction signature.
func (s *TradeEventStore) GetBySignature(_ context.Context, signature string) (*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return cloneEvent(e), nil
}

// GetByMint retrieves all events for a mint, ordered by timestamp ASC.
func (s *TradeEventStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, e := range s.data {
		if e.Mint == mint {
			result = append(result, cloneEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Slot < result[j].Slot
	})

	return result, nil
}

// GetRecent retrieves up to limit events, newest first.
func (s *TradeEventStore) GetRecent(_ context.Context, limit int) ([]*domain.TradeEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeEvent, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, cloneEvent(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Slot > result[j].Slot
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ storage.TradeEventStore = (*TradeEventStore)(nil)
