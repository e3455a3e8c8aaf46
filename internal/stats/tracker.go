package stats

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"flasharb/pkg/types"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Tracker accumulates process-lifetime execution statistics. The execution
// coordinator is the only writer; everything else reads.
type Tracker struct {
	mu         sync.RWMutex
	successful uint64
	failed     uint64
	profit     decimal.Decimal
	volume     decimal.Decimal
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSuccess adds a completed execution. Profit may be negative when a
// trade cleared but settled worse than estimated.
func (t *Tracker) RecordSuccess(profit, volume decimal.Decimal) {
	t.mu.Lock()
	t.successful++
	t.profit = t.profit.Add(profit)
	t.volume = t.volume.Add(volume)
	t.mu.Unlock()
}

// RecordFailure adds a failed execution.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() types.RunningStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return types.RunningStats{
		Successful:       t.successful,
		Failed:           t.failed,
		CumulativeProfit: t.profit,
		CumulativeVolume: t.volume,
	}
}

// SuccessRate returns successful/(successful+failed), or 0 before any
// execution has resolved.
func (t *Tracker) SuccessRate() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := t.successful + t.failed
	if total == 0 {
		return 0
	}
	return float64(t.successful) / float64(total)
}

// AnnualizedReturn returns cumulative profit over cumulative volume scaled
// to a yearly percentage, or 0 while no volume has been traded.
func (t *Tracker) AnnualizedReturn() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.volume.Sign() == 0 {
		return decimal.Zero
	}
	return t.profit.Div(t.volume).Mul(daysPerYear).Mul(hundred)
}

// Reset clears all counters. Only the explicit external reset flow
// (reconnect) calls this.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.successful = 0
	t.failed = 0
	t.profit = decimal.Zero
	t.volume = decimal.Zero
	t.mu.Unlock()
}

// LogStats writes the current counters to the log.
func (t *Tracker) LogStats() {
	snap := t.Snapshot()

	log.Info().
		Uint64("successful", snap.Successful).
		Uint64("failed", snap.Failed).
		Str("cumulativeProfit", snap.CumulativeProfit.StringFixed(2)).
		Str("cumulativeVolume", snap.CumulativeVolume.StringFixed(2)).
		Float64("successRate", t.SuccessRate()).
		Str("annualizedReturn", t.AnnualizedReturn().StringFixed(2)+"%").
		Msg("Execution stats")
}
