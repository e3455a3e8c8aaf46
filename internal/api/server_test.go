package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flasharb/internal/config"
	"flasharb/internal/evaluator"
	"flasharb/internal/executor"
	"flasharb/internal/monitor"
	"flasharb/internal/pricefeed"
	"flasharb/internal/session"
	"flasharb/internal/stats"
	"flasharb/pkg/types"
)

// fixedFeed returns the same spread on every scan.
type fixedFeed struct{}

func (fixedFeed) Prices(context.Context, string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{
		"uniswap":   decimal.NewFromInt(100),
		"sushiswap": decimal.NewFromInt(102),
	}, nil
}

var _ pricefeed.Feed = fixedFeed{}

func newTestServer(t *testing.T) (*Server, *monitor.Monitor, *config.Settings) {
	t.Helper()

	settings := config.NewSettings(config.ExecutionConfig{
		MinProfitPercent: 0.5,
		MaxGasPriceGwei:  100,
		SlippagePercent:  0.5,
		Retention:        time.Hour,
	}, time.Hour)

	sess := session.New()
	sess.Connect(session.SimulatedAccount, big.NewInt(42161))

	tracker := stats.NewTracker()
	sim := executor.NewSimulatorTimed(1, time.Millisecond, 2*time.Millisecond, 1)
	coord := executor.NewCoordinator(sim, sess, settings, tracker, nil, time.Minute, true)
	eval := evaluator.New(0.01, 0.003, settings)
	m := monitor.New(fixedFeed{}, eval, coord, settings, []string{"USDC"}, []string{"uniswap", "sushiswap"})

	srv := NewServer(":0", m, coord, tracker, nil, nil, nil, nil, settings)
	return srv, m, settings
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["monitoring"])
}

func TestOpportunitiesAndExecute(t *testing.T) {
	srv, m, _ := newTestServer(t)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Opportunities()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	rec := doRequest(t, srv, "GET", "/opportunities", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var opps []types.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opps))
	require.Len(t, opps, 1)

	rec = doRequest(t, srv, "POST", "/opportunities/"+opps[0].ID+"/execute", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	execID := accepted["executionId"]
	require.NotEmpty(t, execID)

	rec = doRequest(t, srv, "GET", "/executions/"+execID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, "POST", "/opportunities/no-such-id/execute", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecutionNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/executions/exec-0-0", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsUpdate(t *testing.T) {
	srv, _, settings := newTestServer(t)

	rec := doRequest(t, srv, "PUT", "/settings", `{"minProfitPercent": 2.5, "retentionSeconds": 6}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2.5, settings.MinProfitPercent())
	assert.Equal(t, 6*time.Second, settings.Retention())
	// Untouched fields keep their values.
	assert.Equal(t, 100.0, settings.MaxGasPriceGwei())
}

func TestSettingsPollIntervalRoutedThroughMonitor(t *testing.T) {
	srv, _, settings := newTestServer(t)

	rec := doRequest(t, srv, "PUT", "/settings", `{"pollIntervalSeconds": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30*time.Second, settings.PollInterval())
}

func TestSettingsBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, "PUT", "/settings", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRejectsInvalidValues(t *testing.T) {
	srv, m, settings := newTestServer(t)

	m.Start(context.Background())
	defer m.Stop()

	cases := []string{
		`{"pollIntervalSeconds": 0}`,
		`{"pollIntervalSeconds": -1}`,
		`{"retentionSeconds": -4}`,
		`{"minProfitPercent": -0.1}`,
		`{"maxGasPriceGwei": 0}`,
		`{"slippagePercent": -1}`,
		// Valid fields alongside an invalid one: nothing applies.
		`{"minProfitPercent": 9, "pollIntervalSeconds": 0}`,
	}
	for _, body := range cases {
		rec := doRequest(t, srv, "PUT", "/settings", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}

	// Every setting keeps its original value and the loop is still running.
	assert.Equal(t, 0.5, settings.MinProfitPercent())
	assert.Equal(t, 100.0, settings.MaxGasPriceGwei())
	assert.Equal(t, 0.5, settings.SlippagePercent())
	assert.Equal(t, time.Hour, settings.PollInterval())
	assert.Equal(t, time.Hour, settings.Retention())
	assert.True(t, m.Running())
}

func TestMonitorStartStopEndpoints(t *testing.T) {
	srv, m, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/monitor/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, m.Running())

	rec = doRequest(t, srv, "POST", "/monitor/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, m.Running())
}

func TestStatsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "stats")
	assert.Contains(t, body, "successRate")

	rec = doRequest(t, srv, "POST", "/stats/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnavailableBackends(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/ledger", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, "POST", "/protocols/aave/supply", `{"asset":"0x0000000000000000000000000000000000000001","amount":"100"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, "GET", "/protocols/flashloan/pool", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, "GET", "/protocols/flashloan/position/0x0000000000000000000000000000000000000001", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, "POST", "/protocols/gmx/deposit", "{}")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, "POST", "/protocols/gmx/withdrawal", "{}")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGMXRequestParsing(t *testing.T) {
	req := gmxDepositRequest{
		Receiver:          "0x0000000000000000000000000000000000000001",
		Market:            "0x0000000000000000000000000000000000000002",
		InitialLongToken:  "0x0000000000000000000000000000000000000003",
		InitialShortToken: "0x0000000000000000000000000000000000000004",
		MinMarketTokens:   "0",
		ExecutionFee:      "1000000000000000",
	}
	params, err := req.parse()
	require.NoError(t, err)
	assert.Equal(t, int64(0), params.MinMarketTokens.Int64())
	assert.Equal(t, "1000000000000000", params.ExecutionFee.String())

	req.Market = "not-an-address"
	_, err = req.parse()
	assert.Error(t, err)

	withdrawal := gmxWithdrawalRequest{
		Receiver:            "0x0000000000000000000000000000000000000001",
		Market:              "0x0000000000000000000000000000000000000002",
		MinLongTokenAmount:  "10",
		MinShortTokenAmount: "-5",
		ExecutionFee:        "1",
	}
	_, err = withdrawal.parse()
	assert.Error(t, err)
}
