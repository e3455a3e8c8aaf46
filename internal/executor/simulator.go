package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"flasharb/pkg/types"
)

// Simulator is the execution path used when no live contract binding is
// available. It emulates network confirmation latency with a randomized
// delay, then resolves success with fixed probability and a profit sampled
// around the estimate.
type Simulator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minDelay    time.Duration
	maxDelay    time.Duration
	successRate float64
}

// NewSimulator creates a simulator with the observed production parameters:
// 2-5s confirmation latency, 85% success, profit at 80-120% of estimate.
func NewSimulator(seed int64) *Simulator {
	return NewSimulatorTimed(seed, 2*time.Second, 5*time.Second, 0.85)
}

// NewSimulatorTimed creates a simulator with explicit latency bounds and
// success rate.
func NewSimulatorTimed(seed int64, minDelay, maxDelay time.Duration, successRate float64) *Simulator {
	return &Simulator{
		rng:         rand.New(rand.NewSource(seed)),
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		successRate: successRate,
	}
}

// Execute resolves the simulated outcome after the artificial delay.
func (s *Simulator) Execute(ctx context.Context, p Params) (*Result, error) {
	s.mu.Lock()
	delay := s.minDelay
	if s.maxDelay > s.minDelay {
		delay += time.Duration(s.rng.Int63n(int64(s.maxDelay - s.minDelay)))
	}
	success := s.rng.Float64() < s.successRate
	profitFactor := 0.8 + s.rng.Float64()*0.4
	gasUsed := 300000 + uint64(s.rng.Int63n(50000))
	var hash common.Hash
	s.rng.Read(hash[:])
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	if !success {
		return nil, &CategorizedError{
			Category: types.ErrReverted,
			Reason:   "execution reverted: price moved beyond slippage bound",
		}
	}

	return &Result{
		TxHash:  hash,
		Profit:  p.Opportunity.NetProfit.Mul(decimal.NewFromFloat(profitFactor)),
		GasUsed: gasUsed,
	}, nil
}
