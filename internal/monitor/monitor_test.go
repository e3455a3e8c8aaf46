package monitor

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flasharb/internal/config"
	"flasharb/internal/evaluator"
	"flasharb/internal/executor"
	"flasharb/internal/session"
	"flasharb/internal/stats"
)

var testExchanges = []string{"uniswap", "sushiswap"}

// stubFeed serves fixed per-token prices and per-token errors.
type stubFeed struct {
	mu     sync.Mutex
	prices map[string]map[string]decimal.Decimal
	errs   map[string]error
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		prices: make(map[string]map[string]decimal.Decimal),
		errs:   make(map[string]error),
	}
}

func (f *stubFeed) set(token string, perExchange map[string]float64) {
	out := make(map[string]decimal.Decimal, len(perExchange))
	for exchange, price := range perExchange {
		out[exchange] = decimal.NewFromFloat(price)
	}
	f.mu.Lock()
	f.prices[token] = out
	f.mu.Unlock()
}

func (f *stubFeed) fail(token string, err error) {
	f.mu.Lock()
	f.errs[token] = err
	f.mu.Unlock()
}

func (f *stubFeed) Prices(_ context.Context, token string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[token]; ok {
		return nil, err
	}
	return f.prices[token], nil
}

func newTestMonitor(t *testing.T, feed *stubFeed, tokens []string, pollInterval time.Duration) (*Monitor, *config.Settings) {
	t.Helper()

	settings := config.NewSettings(config.ExecutionConfig{
		MinProfitPercent: 0.5,
		MaxGasPriceGwei:  100,
		SlippagePercent:  0.5,
		Retention:        time.Hour,
	}, pollInterval)

	sess := session.New()
	sess.Connect(session.SimulatedAccount, big.NewInt(42161))

	sim := executor.NewSimulatorTimed(1, time.Millisecond, 2*time.Millisecond, 1)
	coord := executor.NewCoordinator(sim, sess, settings, stats.NewTracker(), nil, time.Minute, true)
	eval := evaluator.New(0.01, 0.003, settings)

	return New(feed, eval, coord, settings, tokens, testExchanges), settings
}

func TestStartStopIdempotent(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})
	m, _ := newTestMonitor(t, feed, []string{"USDC"}, 50*time.Millisecond)

	assert.False(t, m.Running())

	m.Start(context.Background())
	m.Start(context.Background())
	assert.True(t, m.Running())

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())
}

func TestScanRanksByNetProfitDescending(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102}) // 1.69%
	feed.set("WETH", map[string]float64{"uniswap": 100, "sushiswap": 105}) // 4.69%
	feed.set("DAI", map[string]float64{"uniswap": 1, "sushiswap": 1})      // nothing

	m, _ := newTestMonitor(t, feed, []string{"USDC", "WETH", "DAI"}, time.Hour)
	m.scan(context.Background())

	opps := m.Opportunities()
	require.Len(t, opps, 2)
	assert.Equal(t, "WETH", opps[0].Token)
	assert.Equal(t, "USDC", opps[1].Token)
	assert.True(t, opps[0].NetProfitPercent.GreaterThan(opps[1].NetProfitPercent))
}

func TestScanSkipsFailingToken(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})
	feed.fail("WETH", errors.New("feed unavailable"))

	m, _ := newTestMonitor(t, feed, []string{"WETH", "USDC"}, time.Hour)
	m.scan(context.Background())

	opps := m.Opportunities()
	require.Len(t, opps, 1)
	assert.Equal(t, "USDC", opps[0].Token)
}

func TestScanReplacesStaleList(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})

	m, _ := newTestMonitor(t, feed, []string{"USDC"}, time.Hour)
	m.scan(context.Background())
	require.Len(t, m.Opportunities(), 1)

	// The spread collapses; the next tick must drop the stale entry.
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 100})
	m.scan(context.Background())
	assert.Empty(t, m.Opportunities())
}

func TestSetIntervalKeepsOpportunities(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})
	m, settings := newTestMonitor(t, feed, []string{"USDC"}, 20*time.Millisecond)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Opportunities()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.SetInterval(40*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, settings.PollInterval())

	// The list from the last completed scan stays visible across the
	// interval change.
	assert.Len(t, m.Opportunities(), 1)

	// And the loop keeps scanning at the new interval.
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 100})
	require.Eventually(t, func() bool {
		return len(m.Opportunities()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSetIntervalWhileStopped(t *testing.T) {
	feed := newStubFeed()
	m, settings := newTestMonitor(t, feed, []string{"USDC"}, 20*time.Millisecond)

	require.NoError(t, m.SetInterval(time.Second))
	assert.Equal(t, time.Second, settings.PollInterval())
	assert.False(t, m.Running())
}

func TestSetIntervalRejectsNonPositive(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})
	m, settings := newTestMonitor(t, feed, []string{"USDC"}, 20*time.Millisecond)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Opportunities()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Error(t, m.SetInterval(0))
	assert.Error(t, m.SetInterval(-time.Second))

	// Nothing changed and the loop is still alive.
	assert.Equal(t, 20*time.Millisecond, settings.PollInterval())
	assert.True(t, m.Running())

	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 100})
	require.Eventually(t, func() bool {
		return len(m.Opportunities()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestExecuteOpportunity(t *testing.T) {
	feed := newStubFeed()
	feed.set("USDC", map[string]float64{"uniswap": 100, "sushiswap": 102})
	m, _ := newTestMonitor(t, feed, []string{"USDC"}, time.Hour)
	m.scan(context.Background())

	opps := m.Opportunities()
	require.Len(t, opps, 1)

	id, err := m.ExecuteOpportunity(context.Background(), opps[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = m.ExecuteOpportunity(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUnknownOpportunity)
}
