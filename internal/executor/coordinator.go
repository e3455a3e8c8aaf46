package executor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"flasharb/internal/config"
	"flasharb/internal/session"
	"flasharb/internal/stats"
	"flasharb/pkg/types"
)

// Params carries everything an executor implementation needs for one trade.
type Params struct {
	Opportunity     types.Opportunity
	SlippagePercent float64
	Deadline        time.Time
}

// Result is the terminal outcome of a successful execution.
type Result struct {
	TxHash  common.Hash
	Profit  decimal.Decimal
	GasUsed uint64
}

// ArbitrageExecutor drives one opportunity to an on-chain or simulated
// outcome. Implementations: the flash-loan contract adapter and Simulator.
type ArbitrageExecutor interface {
	Execute(ctx context.Context, p Params) (*Result, error)
}

// GasPricer supplies the current gas price for the pre-flight ceiling check.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Coordinator owns the live execution tracking set. Each execution gets a
// unique id, transitions executing -> completed|failed exactly once, and is
// dropped from the live set a grace period after its terminal transition.
// Stats updates outlive that removal.
type Coordinator struct {
	exec      ArbitrageExecutor
	sess      *session.Session
	settings  *config.Settings
	tracker   *stats.Tracker
	gas       GasPricer // nil when no chain client is available
	deadline  time.Duration
	simulated bool

	mu      sync.Mutex
	records map[string]*types.ExecutionRecord
	seq     uint64
}

// NewCoordinator wires a coordinator around the chosen execution path.
func NewCoordinator(exec ArbitrageExecutor, sess *session.Session, settings *config.Settings, tracker *stats.Tracker, gas GasPricer, deadline time.Duration, simulated bool) *Coordinator {
	return &Coordinator{
		exec:      exec,
		sess:      sess,
		settings:  settings,
		tracker:   tracker,
		gas:       gas,
		deadline:  deadline,
		simulated: simulated,
		records:   make(map[string]*types.ExecutionRecord),
	}
}

// Execute starts one execution for the opportunity and returns its record
// id. Precondition failures (disconnected wallet, gas above ceiling) are
// returned before any record is created or state mutated. Once started, the
// execution runs to its terminal state even if the caller's context is
// cancelled.
func (c *Coordinator) Execute(ctx context.Context, opp types.Opportunity) (string, error) {
	if !c.sess.Connected() {
		return "", session.ErrNotConnected
	}

	if c.gas != nil {
		price, err := c.gas.SuggestGasPrice(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to check gas price: %w", err)
		}
		gwei := new(big.Float).Quo(new(big.Float).SetInt(price), big.NewFloat(1e9))
		if gwei.Cmp(big.NewFloat(c.settings.MaxGasPriceGwei())) > 0 {
			return "", ErrGasPriceTooHigh
		}
	}

	c.mu.Lock()
	c.seq++
	id := fmt.Sprintf("exec-%d-%d", time.Now().UnixNano(), c.seq)
	record := &types.ExecutionRecord{
		ID:          id,
		Opportunity: opp,
		Status:      types.StatusExecuting,
		StartedAt:   time.Now(),
		Simulated:   c.simulated,
	}
	c.records[id] = record
	c.mu.Unlock()

	log.Info().
		Str("id", id).
		Str("token", opp.Token).
		Str("buy", opp.BuyExchange).
		Str("sell", opp.SellExchange).
		Str("estProfit", opp.NetProfit.StringFixed(4)).
		Bool("simulated", c.simulated).
		Msg("Execution started")

	go c.run(context.WithoutCancel(ctx), id, opp)
	return id, nil
}

func (c *Coordinator) run(ctx context.Context, id string, opp types.Opportunity) {
	start := time.Now()
	params := Params{
		Opportunity:     opp,
		SlippagePercent: c.settings.SlippagePercent(),
		Deadline:        time.Now().Add(c.deadline),
	}

	result, err := c.exec.Execute(ctx, params)
	executionDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		c.fail(id, err)
		return
	}
	c.complete(id, result)
}

// complete performs the terminal transition to completed. A record that is
// no longer executing is left untouched, which keeps the transition
// exactly-once per id.
func (c *Coordinator) complete(id string, result *Result) {
	c.mu.Lock()
	record, ok := c.records[id]
	if !ok || record.Status != types.StatusExecuting {
		c.mu.Unlock()
		return
	}
	record.Status = types.StatusCompleted
	record.EndedAt = time.Now()
	record.ActualProfit = result.Profit
	record.TxHash = result.TxHash
	volume := record.Opportunity.BuyPrice
	c.mu.Unlock()

	c.tracker.RecordSuccess(result.Profit, volume)
	executionsTotal.WithLabelValues(modeLabel(c.simulated), "completed").Inc()
	profit, _ := result.Profit.Float64()
	profitRealizedUSD.WithLabelValues(modeLabel(c.simulated)).Add(profit)

	log.Info().
		Str("id", id).
		Str("txHash", result.TxHash.Hex()).
		Str("actualProfit", result.Profit.StringFixed(4)).
		Uint64("gasUsed", result.GasUsed).
		Msg("Execution completed")

	c.scheduleRemoval(id)
}

// fail performs the terminal transition to failed.
func (c *Coordinator) fail(id string, err error) {
	category := Classify(err)
	reason := err.Error()
	if category == types.ErrReverted {
		reason = RevertReason(err)
	}

	c.mu.Lock()
	record, ok := c.records[id]
	if !ok || record.Status != types.StatusExecuting {
		c.mu.Unlock()
		return
	}
	record.Status = types.StatusFailed
	record.EndedAt = time.Now()
	record.Error = reason
	record.Category = category
	c.mu.Unlock()

	c.tracker.RecordFailure()
	executionsTotal.WithLabelValues(modeLabel(c.simulated), "failed").Inc()
	executionErrorsTotal.WithLabelValues(string(category)).Inc()

	log.Error().
		Err(err).
		Str("id", id).
		Str("category", string(category)).
		Msg("Execution failed")

	c.scheduleRemoval(id)
}

// scheduleRemoval drops a terminal record from the live set after the
// retention grace period. Display retention only: stats already counted it.
func (c *Coordinator) scheduleRemoval(id string) {
	time.AfterFunc(c.settings.Retention(), func() {
		c.mu.Lock()
		if record, ok := c.records[id]; ok && record.Status.Terminal() {
			delete(c.records, id)
		}
		c.mu.Unlock()
	})
}

// Record returns a copy of the execution record, if still retained.
func (c *Coordinator) Record(id string) (types.ExecutionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.records[id]
	if !ok {
		return types.ExecutionRecord{}, false
	}
	return *record, true
}

// Records returns copies of all retained execution records, oldest first.
func (c *Coordinator) Records() []types.ExecutionRecord {
	c.mu.Lock()
	out := make([]types.ExecutionRecord, 0, len(c.records))
	for _, record := range c.records {
		out = append(out, *record)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
