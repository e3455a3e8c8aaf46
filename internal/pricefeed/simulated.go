package pricefeed

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Base prices for well-known tokens; anything else gets a random base in a
// bounded realistic range on first request.
var defaultBases = map[string]float64{
	"USDC": 1.0,
	"USDT": 1.0,
	"DAI":  1.0,
	"WETH": 2500.0,
	"WBTC": 43000.0,
	"ARB":  1.2,
	"GMX":  28.0,
}

// maxPerturbation bounds the symmetric per-exchange price noise, as a
// fraction of the base price. Spreads stay small so only some scan cycles
// clear the profit threshold, which is what exercises the evaluator.
const maxPerturbation = 0.01

// SimulatedFeed produces internally consistent synthetic prices: one base
// price per token that drifts slowly between calls, perturbed per exchange
// by a small symmetric random percentage. Output is a pure function of the
// RNG state, so a fixed seed gives a reproducible price history.
type SimulatedFeed struct {
	mu        sync.Mutex
	rng       *rand.Rand
	exchanges []string
	bases     map[string]float64
}

// NewSimulated creates a simulated feed over the given exchange set.
func NewSimulated(seed int64, exchanges []string) *SimulatedFeed {
	return &SimulatedFeed{
		rng:       rand.New(rand.NewSource(seed)),
		exchanges: append([]string{}, exchanges...),
		bases:     make(map[string]float64),
	}
}

// Prices returns a price per exchange for the token.
func (f *SimulatedFeed) Prices(_ context.Context, token string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base, ok := f.bases[token]
	if !ok {
		if known, found := defaultBases[token]; found {
			base = known
		} else {
			base = 0.5 + f.rng.Float64()*499.5
		}
	}

	// Slow random walk of the base so spreads change between ticks.
	base *= 1 + (f.rng.Float64()*2-1)*0.0025
	f.bases[token] = base

	prices := make(map[string]decimal.Decimal, len(f.exchanges))
	for _, exchange := range f.exchanges {
		noise := (f.rng.Float64()*2 - 1) * maxPerturbation
		prices[exchange] = decimal.NewFromFloat(base * (1 + noise))
	}
	return prices, nil
}
