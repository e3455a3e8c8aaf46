package evaluator

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flasharb/internal/config"
	"flasharb/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Evaluator computes cross-exchange arbitrage opportunities from a price
// set. Evaluation is pure: no I/O, no retained state beyond the cost model.
type Evaluator struct {
	gasCost     decimal.Decimal // flat modeled gas cost in USD
	feeFraction decimal.Decimal // protocol fee as a fraction of the buy price
	settings    *config.Settings
}

// New creates an evaluator with a fixed cost model. The minimum profit
// threshold is read from settings at evaluation time so runtime changes take
// effect immediately.
func New(gasCostUSD, feeFraction float64, settings *config.Settings) *Evaluator {
	return &Evaluator{
		gasCost:     decimal.NewFromFloat(gasCostUSD),
		feeFraction: decimal.NewFromFloat(feeFraction),
		settings:    settings,
	}
}

// Evaluate picks the cheapest exchange to buy on and the dearest to sell on,
// deducts the modeled gas cost and protocol fee, and returns an opportunity
// when the net profit percent strictly exceeds the configured threshold.
// Exactly at the threshold is a rejection.
//
// exchangeOrder fixes the iteration order: ties go to the exchange that
// appears first, so results are deterministic for a given price set.
func (e *Evaluator) Evaluate(token string, prices map[string]decimal.Decimal, exchangeOrder []string) *types.Opportunity {
	var buyExchange, sellExchange string
	var buyPrice, sellPrice decimal.Decimal

	for _, exchange := range exchangeOrder {
		price, ok := prices[exchange]
		if !ok {
			continue
		}
		if buyExchange == "" || price.LessThan(buyPrice) {
			buyExchange = exchange
			buyPrice = price
		}
		if sellExchange == "" || price.GreaterThan(sellPrice) {
			sellExchange = exchange
			sellPrice = price
		}
	}

	// Need two distinct venues to trade across.
	if buyExchange == "" || buyExchange == sellExchange {
		return nil
	}
	if buyPrice.Sign() <= 0 {
		return nil
	}

	grossSpread := sellPrice.Sub(buyPrice)
	netProfit := grossSpread.Sub(e.gasCost).Sub(e.feeFraction.Mul(buyPrice))
	netProfitPercent := netProfit.Div(buyPrice).Mul(hundred)

	if netProfitPercent.Sign() <= 0 {
		return nil
	}
	threshold := decimal.NewFromFloat(e.settings.MinProfitPercent())
	if netProfitPercent.Cmp(threshold) <= 0 {
		return nil
	}

	return &types.Opportunity{
		ID:               uuid.NewString(),
		Token:            token,
		BuyExchange:      buyExchange,
		SellExchange:     sellExchange,
		BuyPrice:         buyPrice,
		SellPrice:        sellPrice,
		NetProfit:        netProfit,
		NetProfitPercent: netProfitPercent,
		CreatedAt:        time.Now(),
	}
}
