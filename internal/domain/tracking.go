package domain

import "time"

// priceHistoryCap bounds the retained observations per tracked token.
const priceHistoryCap = 100

// PricePoint is one observed pool price with its observation time.
type PricePoint struct {
	Price float64
	At    time.Time
}

// TokenTracking accumulates price observations for one held token. The
// price monitor records into it and reads trends out of it; nothing here
// drives a trading decision. Not safe for concurrent use, callers guard it.
type TokenTracking struct {
	// PeakProfitPct is the highest unrealized profit observed since the
	// position opened, as a percentage of the entry price.
	PeakProfitPct float64
	// LastCheckedAt is when the price monitor last recorded a point.
	LastCheckedAt time.Time

	history []PricePoint
	start   int // oldest slot once the ring is full
}

// Record appends one observation, evicting the oldest once the ring holds
// priceHistoryCap points.
func (t *TokenTracking) Record(price float64, at time.Time) {
	t.LastCheckedAt = at
	if len(t.history) < priceHistoryCap {
		t.history = append(t.history, PricePoint{Price: price, At: at})
		return
	}
	t.history[t.start] = PricePoint{Price: price, At: at}
	t.start = (t.start + 1) % priceHistoryCap
}

// UpdatePeak raises the peak profit watermark. It never lowers it.
func (t *TokenTracking) UpdatePeak(profitPct float64) {
	if profitPct > t.PeakProfitPct {
		t.PeakProfitPct = profitPct
	}
}

// Observations returns the number of retained price points.
func (t *TokenTracking) Observations() int {
	return len(t.history)
}

// History returns the retained points oldest first.
func (t *TokenTracking) History() []PricePoint {
	if len(t.history) == 0 {
		return nil
	}
	out := make([]PricePoint, 0, len(t.history))
	for i := range t.history {
		out = append(out, t.history[(t.start+i)%len(t.history)])
	}
	return out
}

// TrendRate reports the price change per second across the retained window,
// (newest - oldest) / elapsed. Zero until two points with distinct
// timestamps exist.
func (t *TokenTracking) TrendRate() float64 {
	if len(t.history) < 2 {
		return 0
	}
	oldest := t.history[t.start]
	newest := t.history[(t.start+len(t.history)-1)%len(t.history)]
	elapsed := newest.At.Sub(oldest.At).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return (newest.Price - oldest.Price) / elapsed
}
