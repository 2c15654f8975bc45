package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
// Samples are an append-only time series with no uniqueness constraint.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data []*domain.PriceSample
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{}
}

// InsertBulk appends a batch of samples. The whole batch is validated
// before anything is written.
func (s *PriceSampleStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	for _, sample := range samples {
		if sample == nil || sample.Mint == "" || sample.Venue == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range samples {
		copy := *sample
		s.data = append(s.data, &copy)
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByMint(_ context.Context, mint string) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, sample := range s.data {
		if sample.Mint == mint {
			copy := *sample
			result = append(result, &copy)
		}
	}

	sortSamples(result)
	return result, nil
}

// GetByMintVenue retrieves samples for a mint on one venue, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByMintVenue(_ context.Context, mint, venue string) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, sample := range s.data {
		if sample.Mint == mint && sample.Venue == venue {
			copy := *sample
			result = append(result, &copy)
		}
	}

	sortSamples(result)
	return result, nil
}

func sortSamples(samples []*domain.PriceSample) {
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].TimestampMs != samples[j].TimestampMs {
			return samples[i].TimestampMs < samples[j].TimestampMs
		}
		return samples[i].Slot < samples[j].Slot
	})
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
