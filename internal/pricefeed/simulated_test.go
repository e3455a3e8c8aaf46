package pricefeed

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExchanges = []string{"uniswap", "sushiswap", "camelot"}

func TestSimulatedPricesPositiveAndComplete(t *testing.T) {
	feed := NewSimulated(1, testExchanges)

	for i := 0; i < 100; i++ {
		for _, token := range []string{"USDC", "WETH", "SOMETOKEN"} {
			prices, err := feed.Prices(context.Background(), token)
			require.NoError(t, err)
			require.Len(t, prices, len(testExchanges))

			for exchange, price := range prices {
				assert.True(t, price.IsPositive(), "%s on %s: %s", token, exchange, price)
			}
		}
	}
}

func TestSimulatedSpreadBounded(t *testing.T) {
	feed := NewSimulated(2, testExchanges)

	// Per-exchange noise is at most 1% either side of the shared base, so
	// max/min within one call stays under 1.01/0.99.
	bound := decimal.NewFromFloat(1.0205)

	for i := 0; i < 200; i++ {
		prices, err := feed.Prices(context.Background(), "WETH")
		require.NoError(t, err)

		var min, max decimal.Decimal
		first := true
		for _, price := range prices {
			if first || price.LessThan(min) {
				min = price
			}
			if first || price.GreaterThan(max) {
				max = price
			}
			first = false
		}
		assert.True(t, max.Div(min).LessThan(bound), "spread ratio %s", max.Div(min))
	}
}

func TestSimulatedDeterministicBySeed(t *testing.T) {
	a := NewSimulated(7, testExchanges)
	b := NewSimulated(7, testExchanges)

	for i := 0; i < 50; i++ {
		pa, err := a.Prices(context.Background(), "ARB")
		require.NoError(t, err)
		pb, err := b.Prices(context.Background(), "ARB")
		require.NoError(t, err)

		for _, exchange := range testExchanges {
			assert.True(t, pa[exchange].Equal(pb[exchange]))
		}
	}
}

func TestSimulatedBaseDrifts(t *testing.T) {
	feed := NewSimulated(3, testExchanges)

	first, err := feed.Prices(context.Background(), "USDC")
	require.NoError(t, err)
	second, err := feed.Prices(context.Background(), "USDC")
	require.NoError(t, err)

	changed := false
	for _, exchange := range testExchanges {
		if !first[exchange].Equal(second[exchange]) {
			changed = true
		}
	}
	assert.True(t, changed, "prices should move between calls")
}
