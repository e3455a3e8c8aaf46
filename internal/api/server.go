package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"flasharb/internal/executor"
	"flasharb/internal/ledger"
	"flasharb/internal/monitor"
	"flasharb/internal/protocols"
	"flasharb/internal/session"
	"flasharb/internal/stats"
	"flasharb/pkg/types"
)

// Server is the HTTP control and read surface: the service-side equivalent
// of the dashboard's user actions. Rendering stays with the caller.
type Server struct {
	monitor *monitor.Monitor
	coord   *executor.Coordinator
	tracker *stats.Tracker
	store   *ledger.Store        // nil when the ledger is disabled
	flash   *protocols.FlashLoan // nil without a live contract
	aave    *protocols.Aave      // nil without a live contract
	gmx     *protocols.GMX       // nil without a live contract

	settings settingsSurface
	http     *http.Server
}

// settingsSurface is what the PUT /settings handler needs: each option is
// independently settable and immediately effective.
type settingsSurface interface {
	SetMinProfitPercent(float64)
	SetMaxGasPriceGwei(float64)
	SetSlippagePercent(float64)
	SetRetention(time.Duration)
}

// NewServer wires the router. Protocol adapters may be nil; their endpoints
// then report the protocol as unavailable without affecting the rest.
func NewServer(listen string, m *monitor.Monitor, c *executor.Coordinator, t *stats.Tracker, store *ledger.Store, flash *protocols.FlashLoan, aave *protocols.Aave, gmx *protocols.GMX, settings settingsSurface) *Server {
	s := &Server{
		monitor:  m,
		coord:    c,
		tracker:  t,
		store:    store,
		flash:    flash,
		aave:     aave,
		gmx:      gmx,
		settings: settings,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/opportunities", s.handleOpportunities).Methods("GET")
	r.HandleFunc("/opportunities/{id}/execute", s.handleExecute).Methods("POST")
	r.HandleFunc("/executions", s.handleExecutions).Methods("GET")
	r.HandleFunc("/executions/{id}", s.handleExecution).Methods("GET")
	r.HandleFunc("/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/stats/reset", s.handleStatsReset).Methods("POST")
	r.HandleFunc("/settings", s.handleSettings).Methods("PUT")
	r.HandleFunc("/monitor/start", s.handleMonitorStart).Methods("POST")
	r.HandleFunc("/monitor/stop", s.handleMonitorStop).Methods("POST")
	r.HandleFunc("/ledger", s.handleLedger).Methods("GET")
	r.HandleFunc("/protocols/aave/supply", s.handleAaveSupply).Methods("POST")
	r.HandleFunc("/protocols/aave/withdraw", s.handleAaveWithdraw).Methods("POST")
	r.HandleFunc("/protocols/aave/account/{address}", s.handleAaveAccount).Methods("GET")
	r.HandleFunc("/protocols/flashloan/deposit", s.handleFlashDeposit).Methods("POST")
	r.HandleFunc("/protocols/flashloan/pool", s.handleFlashPool).Methods("GET")
	r.HandleFunc("/protocols/flashloan/position/{address}", s.handleFlashPosition).Methods("GET")
	r.HandleFunc("/protocols/gmx/vault-transfer", s.handleGMXSendTokens).Methods("POST")
	r.HandleFunc("/protocols/gmx/deposit", s.handleGMXDeposit).Methods("POST")
	r.HandleFunc("/protocols/gmx/withdrawal", s.handleGMXWithdrawal).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.http = &http.Server{Addr: listen, Handler: r}
	return s
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	log.Info().Str("listen", s.http.Addr).Msg("API server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"monitoring": s.monitor.Running(),
	})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Opportunities())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	recordID, err := s.monitor.ExecuteOpportunity(r.Context(), id)
	switch {
	case errors.Is(err, monitor.ErrUnknownOpportunity):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, executor.ErrGasPriceTooHigh):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"executionId": recordID})
	}
}

func (s *Server) handleExecutions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Records())
}

func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	record, ok := s.coord.Record(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("execution not found or already released"))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":            snap,
		"successRate":      s.tracker.SuccessRate(),
		"annualizedReturn": s.tracker.AnnualizedReturn(),
		"activeExecutions": len(s.coord.Records()),
	})
}

// handleStatsReset clears the running counters. This is the only path that
// resets stats; terminal transitions and record expiry never do.
func (s *Server) handleStatsReset(w http.ResponseWriter, _ *http.Request) {
	s.tracker.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// settingsRequest uses pointers so each option can be changed on its own.
type settingsRequest struct {
	MinProfitPercent    *float64 `json:"minProfitPercent"`
	MaxGasPriceGwei     *float64 `json:"maxGasPriceGwei"`
	SlippagePercent     *float64 `json:"slippagePercent"`
	PollIntervalSeconds *float64 `json:"pollIntervalSeconds"`
	RetentionSeconds    *float64 `json:"retentionSeconds"`
}

// validate runs before anything is applied, so a bad request leaves every
// setting untouched.
func (req *settingsRequest) validate() error {
	if req.MinProfitPercent != nil && *req.MinProfitPercent < 0 {
		return errors.New("minProfitPercent must not be negative")
	}
	if req.MaxGasPriceGwei != nil && *req.MaxGasPriceGwei <= 0 {
		return errors.New("maxGasPriceGwei must be positive")
	}
	if req.SlippagePercent != nil && *req.SlippagePercent < 0 {
		return errors.New("slippagePercent must not be negative")
	}
	if req.PollIntervalSeconds != nil && *req.PollIntervalSeconds <= 0 {
		return errors.New("pollIntervalSeconds must be positive")
	}
	if req.RetentionSeconds != nil && *req.RetentionSeconds < 0 {
		return errors.New("retentionSeconds must not be negative")
	}
	return nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.MinProfitPercent != nil {
		s.settings.SetMinProfitPercent(*req.MinProfitPercent)
	}
	if req.MaxGasPriceGwei != nil {
		s.settings.SetMaxGasPriceGwei(*req.MaxGasPriceGwei)
	}
	if req.SlippagePercent != nil {
		s.settings.SetSlippagePercent(*req.SlippagePercent)
	}
	if req.RetentionSeconds != nil {
		s.settings.SetRetention(time.Duration(*req.RetentionSeconds * float64(time.Second)))
	}
	if req.PollIntervalSeconds != nil {
		// Routed through the monitor so a running loop restarts its timer.
		if err := s.monitor.SetInterval(time.Duration(*req.PollIntervalSeconds * float64(time.Second))); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, _ *http.Request) {
	s.monitor.Start(context.Background())
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, _ *http.Request) {
	s.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("ledger not configured"))
		return
	}
	entries, err := s.store.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address", field)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s", field)
	}
	return amount, nil
}

type transferRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"` // integer, smallest units
	Note   string `json:"note"`
}

func (req *transferRequest) parse() (common.Address, *big.Int, error) {
	if !common.IsHexAddress(req.Asset) {
		return common.Address{}, nil, errors.New("invalid asset address")
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return common.Address{}, nil, errors.New("invalid amount")
	}
	return common.HexToAddress(req.Asset), amount, nil
}

func (s *Server) handleAaveSupply(w http.ResponseWriter, r *http.Request) {
	s.protocolTransfer(w, r, s.aave != nil, "aave supply", func(ctx context.Context, asset common.Address, amount *big.Int) (common.Hash, error) {
		return s.aave.Supply(ctx, asset, amount)
	})
}

func (s *Server) handleAaveWithdraw(w http.ResponseWriter, r *http.Request) {
	s.protocolTransfer(w, r, s.aave != nil, "aave withdraw", func(ctx context.Context, asset common.Address, amount *big.Int) (common.Hash, error) {
		return s.aave.Withdraw(ctx, asset, amount)
	})
}

func (s *Server) handleAaveAccount(w http.ResponseWriter, r *http.Request) {
	if s.aave == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("aave protocol unavailable"))
		return
	}
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, errors.New("invalid address"))
		return
	}
	data, err := s.aave.GetUserAccountData(r.Context(), common.HexToAddress(address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleFlashDeposit(w http.ResponseWriter, r *http.Request) {
	s.protocolTransfer(w, r, s.flash != nil, "flashloan deposit", func(ctx context.Context, _ common.Address, amount *big.Int) (common.Hash, error) {
		return s.flash.Deposit(ctx, amount)
	})
}

func (s *Server) handleFlashPool(w http.ResponseWriter, r *http.Request) {
	if s.flash == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("flashloan protocol unavailable"))
		return
	}
	metrics, err := s.flash.GetPoolMetrics(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleFlashPosition(w http.ResponseWriter, r *http.Request) {
	if s.flash == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("flashloan protocol unavailable"))
		return
	}
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, errors.New("invalid address"))
		return
	}
	position, err := s.flash.GetUserPosition(r.Context(), common.HexToAddress(address))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// gmxDepositRequest mirrors the router's createDeposit tuple, with amounts
// as integer strings in smallest units.
type gmxDepositRequest struct {
	Receiver          string `json:"receiver"`
	Market            string `json:"market"`
	InitialLongToken  string `json:"initialLongToken"`
	InitialShortToken string `json:"initialShortToken"`
	MinMarketTokens   string `json:"minMarketTokens"`
	ExecutionFee      string `json:"executionFee"`
}

func (req *gmxDepositRequest) parse() (protocols.CreateDepositParams, error) {
	var p protocols.CreateDepositParams
	var err error

	if p.Receiver, err = parseAddress("receiver", req.Receiver); err != nil {
		return p, err
	}
	if p.Market, err = parseAddress("market", req.Market); err != nil {
		return p, err
	}
	if p.InitialLongToken, err = parseAddress("initialLongToken", req.InitialLongToken); err != nil {
		return p, err
	}
	if p.InitialShortToken, err = parseAddress("initialShortToken", req.InitialShortToken); err != nil {
		return p, err
	}
	if p.MinMarketTokens, err = parseAmount("minMarketTokens", req.MinMarketTokens); err != nil {
		return p, err
	}
	if p.ExecutionFee, err = parseAmount("executionFee", req.ExecutionFee); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) handleGMXDeposit(w http.ResponseWriter, r *http.Request) {
	if s.gmx == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("gmx protocol unavailable"))
		return
	}

	var req gmxDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := s.gmx.CreateDeposit(r.Context(), params)
	if errors.Is(err, session.ErrNotConnected) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"txHash": hash.Hex()})
}

// gmxWithdrawalRequest mirrors the router's createWithdrawal tuple.
type gmxWithdrawalRequest struct {
	Receiver            string `json:"receiver"`
	Market              string `json:"market"`
	MinLongTokenAmount  string `json:"minLongTokenAmount"`
	MinShortTokenAmount string `json:"minShortTokenAmount"`
	ExecutionFee        string `json:"executionFee"`
}

func (req *gmxWithdrawalRequest) parse() (protocols.CreateWithdrawalParams, error) {
	var p protocols.CreateWithdrawalParams
	var err error

	if p.Receiver, err = parseAddress("receiver", req.Receiver); err != nil {
		return p, err
	}
	if p.Market, err = parseAddress("market", req.Market); err != nil {
		return p, err
	}
	if p.MinLongTokenAmount, err = parseAmount("minLongTokenAmount", req.MinLongTokenAmount); err != nil {
		return p, err
	}
	if p.MinShortTokenAmount, err = parseAmount("minShortTokenAmount", req.MinShortTokenAmount); err != nil {
		return p, err
	}
	if p.ExecutionFee, err = parseAmount("executionFee", req.ExecutionFee); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Server) handleGMXWithdrawal(w http.ResponseWriter, r *http.Request) {
	if s.gmx == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("gmx protocol unavailable"))
		return
	}

	var req gmxWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := s.gmx.CreateWithdrawal(r.Context(), params)
	if errors.Is(err, session.ErrNotConnected) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"txHash": hash.Hex()})
}

func (s *Server) handleGMXSendTokens(w http.ResponseWriter, r *http.Request) {
	s.protocolTransfer(w, r, s.gmx != nil, "gmx vault transfer", func(ctx context.Context, asset common.Address, amount *big.Int) (common.Hash, error) {
		return s.gmx.SendTokens(ctx, asset, amount)
	})
}

// protocolTransfer runs a deposit/withdrawal-style call and appends the
// confirmed transfer to the ledger.
func (s *Server) protocolTransfer(w http.ResponseWriter, r *http.Request, available bool, action string, fn func(context.Context, common.Address, *big.Int) (common.Hash, error)) {
	if !available {
		writeError(w, http.StatusServiceUnavailable, errors.New("protocol unavailable"))
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	asset, amount, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := fn(r.Context(), asset, amount)
	if errors.Is(err, session.ErrNotConnected) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if s.store != nil {
		entry := types.DepositEntry{
			Date:   time.Now(),
			Asset:  req.Asset,
			Amount: req.Amount,
			TxRef:  hash.Hex(),
			Note:   nonEmpty(req.Note, action),
		}
		if err := s.store.Append(r.Context(), entry); err != nil {
			log.Error().Err(err).Str("action", action).Msg("Failed to append ledger entry")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"txHash": hash.Hex()})
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
