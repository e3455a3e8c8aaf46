package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the arbitrage service
type Config struct {
	RPC       RPCConfig
	Scanner   ScannerConfig
	Execution ExecutionConfig
	Contracts ContractsConfig
	Ledger    LedgerConfig
	API       APIConfig
	Logging   LoggingConfig
}

// RPCConfig holds Ethereum RPC configuration
type RPCConfig struct {
	URL            string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// ScannerConfig holds price scanning settings
type ScannerConfig struct {
	Tokens       []string
	Exchanges    []string
	PollInterval time.Duration
	GasCostUSD   float64 // flat modeled gas cost per trade
	FeeFraction  float64 // protocol fee as a fraction of the buy price
	LiveFeed     bool
	FeedURL      string // websocket endpoint template for the live feed
}

// ExecutionConfig holds execution coordinator settings
type ExecutionConfig struct {
	Simulate         bool
	MinProfitPercent float64 // percent units; the config boundary owns the conversion
	MaxGasPriceGwei  float64
	SlippagePercent  float64
	Retention        time.Duration // grace period before terminal records leave the live set
	Deadline         time.Duration // on-chain call deadline, added to the current time
	TradeUnits       float64       // flash-loan size in asset units
	PrivateKey       string        // hex, optional; enables live signing
	ChainID          int64
}

// ContractsConfig holds per-protocol contract addresses plus the token and
// exchange-router address books used to build live call parameters
type ContractsConfig struct {
	Arbitrage string
	AavePool  string
	GMXRouter string
	GMXVault  string
	Tokens    map[string]string // token symbol -> ERC20 address
	Routers   map[string]string // exchange name -> router address
}

// LedgerConfig holds the deposit-history store connection settings
type LedgerConfig struct {
	Addr     string
	Password string
	DB       int
}

// APIConfig holds the HTTP control surface settings
type APIConfig struct {
	Listen string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("rpc.url", "")
	v.SetDefault("rpc.retry_attempts", 3)
	v.SetDefault("rpc.retry_delay", "1s")
	v.SetDefault("rpc.request_timeout", "30s")

	v.SetDefault("scanner.tokens", []string{"USDC", "USDT", "DAI", "WETH", "ARB"})
	v.SetDefault("scanner.exchanges", []string{"uniswap", "sushiswap", "camelot"})
	v.SetDefault("scanner.poll_interval", "10s")
	v.SetDefault("scanner.gas_cost_usd", 0.01)
	v.SetDefault("scanner.fee_fraction", 0.003)
	v.SetDefault("scanner.live_feed", false)
	v.SetDefault("scanner.feed_url", "")

	v.SetDefault("execution.simulate", true)
	v.SetDefault("execution.min_profit_percent", 0.5)
	v.SetDefault("execution.max_gas_price_gwei", 100)
	v.SetDefault("execution.slippage_percent", 0.5)
	v.SetDefault("execution.retention", "4s")
	v.SetDefault("execution.deadline", "2m")
	v.SetDefault("execution.trade_units", 1.0)
	v.SetDefault("execution.private_key", "")
	v.SetDefault("execution.chain_id", 42161)

	v.SetDefault("contracts.arbitrage", "")
	v.SetDefault("contracts.aave_pool", "0x794a61358D6845594F94dc1DB02A252b5b4814aD")
	v.SetDefault("contracts.gmx_router", "")
	v.SetDefault("contracts.gmx_vault", "")
	v.SetDefault("contracts.tokens", map[string]string{})
	v.SetDefault("contracts.routers", map[string]string{})

	v.SetDefault("ledger.addr", "localhost:6379")
	v.SetDefault("ledger.password", "")
	v.SetDefault("ledger.db", 0)

	v.SetDefault("api.listen", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Environment variable support
	v.SetEnvPrefix("FLASHARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.flasharb")

	// Read config file (optional)
	_ = v.ReadInConfig()

	retryDelay, _ := time.ParseDuration(v.GetString("rpc.retry_delay"))
	requestTimeout, _ := time.ParseDuration(v.GetString("rpc.request_timeout"))
	pollInterval, _ := time.ParseDuration(v.GetString("scanner.poll_interval"))
	retention, _ := time.ParseDuration(v.GetString("execution.retention"))
	deadline, _ := time.ParseDuration(v.GetString("execution.deadline"))

	cfg := &Config{
		RPC: RPCConfig{
			URL:            v.GetString("rpc.url"),
			RetryAttempts:  v.GetInt("rpc.retry_attempts"),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		Scanner: ScannerConfig{
			Tokens:       v.GetStringSlice("scanner.tokens"),
			Exchanges:    v.GetStringSlice("scanner.exchanges"),
			PollInterval: pollInterval,
			GasCostUSD:   v.GetFloat64("scanner.gas_cost_usd"),
			FeeFraction:  v.GetFloat64("scanner.fee_fraction"),
			LiveFeed:     v.GetBool("scanner.live_feed"),
			FeedURL:      v.GetString("scanner.feed_url"),
		},
		Execution: ExecutionConfig{
			Simulate:         v.GetBool("execution.simulate"),
			MinProfitPercent: v.GetFloat64("execution.min_profit_percent"),
			MaxGasPriceGwei:  v.GetFloat64("execution.max_gas_price_gwei"),
			SlippagePercent:  v.GetFloat64("execution.slippage_percent"),
			Retention:        retention,
			Deadline:         deadline,
			TradeUnits:       v.GetFloat64("execution.trade_units"),
			PrivateKey:       v.GetString("execution.private_key"),
			ChainID:          v.GetInt64("execution.chain_id"),
		},
		Contracts: ContractsConfig{
			Arbitrage: v.GetString("contracts.arbitrage"),
			AavePool:  v.GetString("contracts.aave_pool"),
			GMXRouter: v.GetString("contracts.gmx_router"),
			GMXVault:  v.GetString("contracts.gmx_vault"),
			Tokens:    v.GetStringMapString("contracts.tokens"),
			Routers:   v.GetStringMapString("contracts.routers"),
		},
		Ledger: LedgerConfig{
			Addr:     v.GetString("ledger.addr"),
			Password: v.GetString("ledger.password"),
			DB:       v.GetInt("ledger.db"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	return cfg, nil
}
