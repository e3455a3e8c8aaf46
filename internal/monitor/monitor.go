package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"flasharb/internal/config"
	"flasharb/internal/evaluator"
	"flasharb/internal/executor"
	"flasharb/internal/pricefeed"
	"flasharb/pkg/types"
)

// ErrUnknownOpportunity is returned when an execution is requested for an
// opportunity id no longer in the current scan.
var ErrUnknownOpportunity = errors.New("unknown opportunity id")

var (
	scansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_scans_total",
		Help: "Total number of completed scan ticks",
	})
	opportunitiesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flasharb_opportunities_found_total",
		Help: "Total number of opportunities detected across all scans",
	})
)

// Monitor runs the recurring scan loop: Stopped <-> Running. Each tick
// evaluates every configured token and replaces the opportunity list
// wholesale so stale entries cannot linger. The loop never executes an
// opportunity on its own; that takes an explicit ExecuteOpportunity call.
type Monitor struct {
	feed      pricefeed.Feed
	eval      *evaluator.Evaluator
	coord     *executor.Coordinator
	settings  *config.Settings
	tokens    []string
	exchanges []string

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	reload  chan struct{}
	done    chan struct{}

	oppMu         sync.RWMutex
	opportunities []types.Opportunity
}

// New creates a monitor over a fixed token and exchange ordering.
func New(feed pricefeed.Feed, eval *evaluator.Evaluator, coord *executor.Coordinator, settings *config.Settings, tokens, exchanges []string) *Monitor {
	return &Monitor{
		feed:      feed,
		eval:      eval,
		coord:     coord,
		settings:  settings,
		tokens:    append([]string{}, tokens...),
		exchanges: append([]string{}, exchanges...),
	}
}

// Start begins the scan loop. A no-op when already running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.reload = make(chan struct{}, 1)
	m.done = make(chan struct{})

	log.Info().Dur("interval", m.settings.PollInterval()).Msg("Monitoring started")
	go m.loop(ctx, m.stop, m.reload, m.done)
}

// Stop halts future ticks and waits for an in-flight tick to complete.
// In-flight executions are untouched; they run to their terminal state.
// A no-op when already stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
	log.Info().Msg("Monitoring stopped")
}

// Running reports the loop state.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SetInterval changes the poll interval. While running, the timer restarts
// with the new interval; the last scanned opportunity list stays in place
// until the next tick completes. A non-positive interval is rejected before
// any state changes; the loop's ticker never sees one.
func (m *Monitor) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", d)
	}
	m.settings.SetPollInterval(d)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	// Coalesce: the loop re-reads the interval from settings on wake.
	select {
	case m.reload <- struct{}{}:
	default:
	}
	return nil
}

func (m *Monitor) loop(ctx context.Context, stop, reload chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.settings.PollInterval())
	defer ticker.Stop()

	// First scan immediately rather than one interval in.
	m.scan(ctx)

	for {
		select {
		case <-stop:
			return
		case <-reload:
			interval := m.settings.PollInterval()
			ticker.Stop()
			ticker = time.NewTicker(interval)
			log.Info().Dur("interval", interval).Msg("Poll interval changed")
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

// scan evaluates every token in the configured order. A token whose price
// lookup fails is logged and skipped; the rest of the tick continues. The
// result replaces the previous list, sorted by net profit percent
// descending with ties kept in insertion order.
func (m *Monitor) scan(ctx context.Context) {
	found := make([]types.Opportunity, 0, len(m.tokens))

	for _, token := range m.tokens {
		prices, err := m.feed.Prices(ctx, token)
		if err != nil {
			log.Warn().Err(err).Str("token", token).Msg("Price lookup failed, skipping token")
			continue
		}

		opp := m.eval.Evaluate(token, prices, m.exchanges)
		if opp == nil {
			continue
		}
		found = append(found, *opp)

		log.Debug().
			Str("token", opp.Token).
			Str("buy", opp.BuyExchange).
			Str("sell", opp.SellExchange).
			Str("netProfitPercent", opp.NetProfitPercent.StringFixed(4)).
			Msg("Opportunity detected")
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].NetProfitPercent.GreaterThan(found[j].NetProfitPercent)
	})

	m.oppMu.Lock()
	m.opportunities = found
	m.oppMu.Unlock()

	scansTotal.Inc()
	opportunitiesFound.Add(float64(len(found)))
}

// Opportunities returns a copy of the current ranked opportunity list.
func (m *Monitor) Opportunities() []types.Opportunity {
	m.oppMu.RLock()
	defer m.oppMu.RUnlock()
	return append([]types.Opportunity{}, m.opportunities...)
}

// ExecuteOpportunity hands an opportunity from the current list to the
// execution coordinator. This is the explicit user action; the scan loop
// never calls it.
func (m *Monitor) ExecuteOpportunity(ctx context.Context, id string) (string, error) {
	m.oppMu.RLock()
	var match *types.Opportunity
	for i := range m.opportunities {
		if m.opportunities[i].ID == id {
			match = &m.opportunities[i]
			break
		}
	}
	m.oppMu.RUnlock()

	if match == nil {
		return "", ErrUnknownOpportunity
	}
	return m.coord.Execute(ctx, *match)
}
