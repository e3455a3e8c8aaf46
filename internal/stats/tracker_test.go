package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTrackerEmpty(t *testing.T) {
	tracker := NewTracker()

	assert.Zero(t, tracker.SuccessRate())
	assert.True(t, tracker.AnnualizedReturn().IsZero())

	snap := tracker.Snapshot()
	assert.Zero(t, snap.Successful)
	assert.Zero(t, snap.Failed)
}

func TestTrackerAggregation(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordSuccess(decimal.NewFromFloat(1.5), decimal.NewFromInt(100))
	tracker.RecordSuccess(decimal.NewFromFloat(-0.5), decimal.NewFromInt(100))
	tracker.RecordFailure()

	snap := tracker.Snapshot()
	assert.Equal(t, uint64(2), snap.Successful)
	assert.Equal(t, uint64(1), snap.Failed)
	assert.True(t, snap.CumulativeProfit.Equal(decimal.NewFromInt(1)), "profit %s", snap.CumulativeProfit)
	assert.True(t, snap.CumulativeVolume.Equal(decimal.NewFromInt(200)), "volume %s", snap.CumulativeVolume)

	assert.InDelta(t, 2.0/3.0, tracker.SuccessRate(), 1e-9)

	// 1/200 * 365 * 100 = 182.5
	assert.True(t, tracker.AnnualizedReturn().Equal(decimal.NewFromFloat(182.5)), "annualized %s", tracker.AnnualizedReturn())
}

func TestTrackerFailuresOnly(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordFailure()
	tracker.RecordFailure()

	assert.Zero(t, tracker.SuccessRate())
	assert.True(t, tracker.AnnualizedReturn().IsZero())
}

func TestTrackerReset(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordSuccess(decimal.NewFromInt(3), decimal.NewFromInt(50))
	tracker.RecordFailure()

	tracker.Reset()

	snap := tracker.Snapshot()
	assert.Zero(t, snap.Successful)
	assert.Zero(t, snap.Failed)
	assert.True(t, snap.CumulativeProfit.IsZero())
	assert.True(t, snap.CumulativeVolume.IsZero())
}
