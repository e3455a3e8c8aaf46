package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"
)

// Feed supplies per-token prices across a fixed set of exchanges.
//
// A failed lookup fails only that token: callers are expected to skip it and
// continue scanning the remaining tokens.
type Feed interface {
	Prices(ctx context.Context, token string) (map[string]decimal.Decimal, error)
}
