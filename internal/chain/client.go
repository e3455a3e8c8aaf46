package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"flasharb/internal/config"
)

// Client wraps the Ethereum client with retry logic and convenience methods
type Client struct {
	client  *ethclient.Client
	cfg     config.RPCConfig
	chainID *big.Int
}

// NewClient creates a new Ethereum client
func NewClient(cfg config.RPCConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("chainID", chainID.String()).
		Msg("Connected to Ethereum node")

	return &Client{
		client:  client,
		cfg:     cfg,
		chainID: chainID,
	}, nil
}

// Close closes the client connection
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain ID
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// SuggestGasPrice returns the suggested gas price with retry
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		price, err = c.client.SuggestGasPrice(ctx)
		if err == nil {
			return price, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get gas price, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get gas price after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// PendingNonceAt returns the next nonce for an account with retry
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		nonce, err = c.client.PendingNonceAt(ctx, account)
		if err == nil {
			return nonce, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get nonce, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return 0, fmt.Errorf("failed to get nonce after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// CodeAt returns the deployed bytecode at an address with retry
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		code, err = c.client.CodeAt(ctx, account, nil)
		if err == nil {
			return code, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get code, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get code after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// CallContract executes a read-only contract call with retry
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var result []byte
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		result, err = c.client.CallContract(ctx, msg, nil)
		if err == nil {
			return result, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to call contract, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to call contract after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// SendTransaction broadcasts a signed transaction. No retry: resubmitting a
// transaction that may already be in the mempool is not safe.
func (c *Client) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

// TransactionReceipt returns the receipt of a transaction with retry
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	var err error

	for i := 0; i < c.cfg.RetryAttempts; i++ {
		receipt, err = c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("Failed to get receipt, retrying...")
		time.Sleep(c.cfg.RetryDelay)
	}

	return nil, fmt.Errorf("failed to get receipt after %d attempts: %w", c.cfg.RetryAttempts, err)
}

// WaitMined polls until the transaction is mined and returns its receipt.
// The wait is bounded only by ctx; confirmation time is the chain's business.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			log.Debug().Err(err).Str("tx", txHash.Hex()).Msg("Receipt not available yet")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
