package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"flasharb/internal/api"
	"flasharb/internal/chain"
	"flasharb/internal/config"
	"flasharb/internal/evaluator"
	"flasharb/internal/executor"
	"flasharb/internal/ledger"
	"flasharb/internal/monitor"
	"flasharb/internal/pricefeed"
	"flasharb/internal/protocols"
	"flasharb/internal/session"
	"flasharb/internal/stats"
)

// Service is the assembled arbitrage engine: price feed, scanner, execution
// coordinator, and the HTTP surface that drives them.
type Service struct {
	cfg      *config.Config
	settings *config.Settings
	client   *chain.Client // nil in simulation-only runs
	sess     *session.Session
	tracker  *stats.Tracker
	store    *ledger.Store
	monitor  *monitor.Monitor
	server   *api.Server
}

// NewService wires the full service from loaded configuration. Without an
// RPC URL the service runs fully simulated; with one it binds the protocol
// contracts and executes on-chain.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	settings := config.NewSettings(cfg.Execution, cfg.Scanner.PollInterval)
	sess := session.New()
	tracker := stats.NewTracker()

	sess.Subscribe(func(ev session.Event) {
		log.Info().Str("event", string(ev.Type)).Str("account", ev.Account.Hex()).Msg("Session event")
	})

	var feed pricefeed.Feed
	if cfg.Scanner.LiveFeed && cfg.Scanner.FeedURL != "" {
		live := pricefeed.NewLive(cfg.Scanner.FeedURL, cfg.Scanner.Exchanges)
		live.Start(ctx)
		feed = live
	} else {
		feed = pricefeed.NewSimulated(time.Now().UnixNano(), cfg.Scanner.Exchanges)
	}

	svc := &Service{
		cfg:      cfg,
		settings: settings,
		sess:     sess,
		tracker:  tracker,
	}

	var (
		arbExec executor.ArbitrageExecutor
		gas     executor.GasPricer
		flash   *protocols.FlashLoan
		aave    *protocols.Aave
		gmx     *protocols.GMX
	)

	if cfg.RPC.URL != "" && !cfg.Execution.Simulate {
		client, err := chain.NewClient(cfg.RPC)
		if err != nil {
			return nil, err
		}
		svc.client = client
		gas = client

		if cfg.Execution.PrivateKey != "" {
			if err := sess.ConnectKey(cfg.Execution.PrivateKey, big.NewInt(cfg.Execution.ChainID)); err != nil {
				client.Close()
				return nil, err
			}
		}

		flash, err = protocols.NewFlashLoan(ctx, client, sess, cfg.Contracts.Arbitrage, cfg.Contracts.Tokens, cfg.Contracts.Routers, cfg.Execution.TradeUnits)
		if err != nil {
			client.Close()
			return nil, err
		}
		arbExec = flash

		// Aave and GMX are optional; a missing contract disables only
		// that protocol's endpoints.
		aave, err = protocols.NewAave(ctx, client, sess, cfg.Contracts.AavePool)
		if err != nil {
			log.Warn().Err(err).Msg("Aave pool unavailable")
		}
		gmx, err = protocols.NewGMX(ctx, client, sess, cfg.Contracts.GMXRouter, cfg.Contracts.GMXVault)
		if err != nil {
			log.Warn().Err(err).Msg("GMX router unavailable")
		}
	} else {
		arbExec = executor.NewSimulator(time.Now().UnixNano())
		// Simulation keeps a connected session so executions are not
		// rejected at the wallet check.
		sess.Connect(session.SimulatedAccount, big.NewInt(cfg.Execution.ChainID))
	}

	coord := executor.NewCoordinator(arbExec, sess, settings, tracker, gas, cfg.Execution.Deadline, cfg.Execution.Simulate || cfg.RPC.URL == "")
	eval := evaluator.New(cfg.Scanner.GasCostUSD, cfg.Scanner.FeeFraction, settings)
	svc.monitor = monitor.New(feed, eval, coord, settings, cfg.Scanner.Tokens, cfg.Scanner.Exchanges)

	if cfg.Ledger.Addr != "" {
		svc.store = ledger.New(cfg.Ledger.Addr, cfg.Ledger.Password, cfg.Ledger.DB)
		if history, err := svc.store.History(ctx); err != nil {
			log.Warn().Err(err).Msg("Deposit ledger unreachable")
		} else {
			log.Info().Int("entries", len(history)).Msg("Deposit ledger loaded")
		}
	}

	svc.server = api.NewServer(cfg.API.Listen, svc.monitor, coord, tracker, svc.store, flash, aave, gmx, settings)
	return svc, nil
}

// Start runs the scan loop and the API server until the context ends.
func (s *Service) Start(ctx context.Context) error {
	s.monitor.Start(ctx)

	// Stats ticker (every 30 seconds)
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Start()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down...")
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-statsTicker.C:
			s.tracker.LogStats()
		}
	}
}

// Close releases everything in reverse construction order.
func (s *Service) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API shutdown error")
	}

	s.monitor.Stop()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Error().Err(err).Msg("Ledger close error")
		}
	}
	if s.client != nil {
		s.client.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.SetupLogging(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := NewService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create service")
	}
	defer svc.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := svc.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Service error")
	}

	log.Info().Msg("Arbitrage service stopped")
}
