package stream

import (
	"sync"
	"time"

	"solana-copyarb/internal/domain"
)

// Tracker guards the per-token price tracking map. TokenTracking itself
// is not concurrency-safe; every access goes through the tracker's
// mutex, held only for the in-memory update.
type Tracker struct {
	mu     sync.Mutex
	tokens map[string]*domain.TokenTracking
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{tokens: make(map[string]*domain.TokenTracking)}
}

// Observe records one price point for mint and raises its peak profit
// watermark. Returns the peak and the trend rate after the update.
func (t *Tracker) Observe(mint string, price, profitPct float64, at time.Time) (peakPct, trendRate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tokens[mint]
	if !ok {
		tr = &domain.TokenTracking{}
		t.tokens[mint] = tr
	}
	tr.Record(price, at)
	tr.UpdatePeak(profitPct)
	return tr.PeakProfitPct, tr.TrendRate()
}

// Peak returns the peak profit watermark for mint.
func (t *Tracker) Peak(mint string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tokens[mint]
	if !ok {
		return 0, false
	}
	return tr.PeakProfitPct, true
}

// Retain drops every tracked mint not in keep. Sold and failed positions
// stop being tracked on the next monitor pass.
func (t *Tracker) Retain(keep map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for mint := range t.tokens {
		if _, ok := keep[mint]; !ok {
			delete(t.tokens, mint)
		}
	}
}

// Len returns the number of tracked mints.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tokens)
}
