package protocols

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"flasharb/internal/chain"
	"flasharb/internal/executor"
	"flasharb/internal/session"
)

// arbitrageExecutedTopic is topic0 of ArbitrageExecuted(address,uint256).
var arbitrageExecutedTopic = crypto.Keccak256Hash([]byte("ArbitrageExecuted(address,uint256)"))

// assetDecimals is assumed for loan amounts and emitted profit. Tokens with
// other decimals would need a per-token table here.
const assetDecimals = 18

// FlashLoan adapts the flash-loan arbitrage contract. It is the live
// implementation of executor.ArbitrageExecutor and also exposes the
// contract's pool operations.
type FlashLoan struct {
	contract *contract
	tokens   map[string]common.Address // token symbol -> asset address
	routers  map[string]common.Address // exchange name -> router address
	units    decimal.Decimal           // loan size, in asset units
}

// NewFlashLoan binds the flash-loan contract. A missing contract blocks
// only this protocol.
func NewFlashLoan(ctx context.Context, client *chain.Client, sess *session.Session, address string, tokens, routers map[string]string, tradeUnits float64) (*FlashLoan, error) {
	bound, err := bindContract(ctx, client, sess, "flashloan", address, flashArbABI)
	if err != nil {
		return nil, err
	}

	return &FlashLoan{
		contract: bound,
		tokens:   toAddresses(tokens),
		routers:  toAddresses(routers),
		units:    decimal.NewFromFloat(tradeUnits),
	}, nil
}

// Execute runs one arbitrage through the contract and waits for the
// receipt. Profit is read from the ArbitrageExecuted event; a missing or
// unparseable event is reported as zero profit, not a failure.
func (f *FlashLoan) Execute(ctx context.Context, p executor.Params) (*executor.Result, error) {
	asset, ok := f.tokens[p.Opportunity.Token]
	if !ok {
		return nil, fmt.Errorf("unsupported asset %s: no configured address", p.Opportunity.Token)
	}
	buyRouter, ok := f.routers[p.Opportunity.BuyExchange]
	if !ok {
		return nil, fmt.Errorf("no router configured for exchange %s", p.Opportunity.BuyExchange)
	}
	sellRouter, ok := f.routers[p.Opportunity.SellExchange]
	if !ok {
		return nil, fmt.Errorf("no router configured for exchange %s", p.Opportunity.SellExchange)
	}

	amount := toWei(f.units)
	slippageBps := big.NewInt(int64(p.SlippagePercent * 100))
	deadline := big.NewInt(p.Deadline.Unix())

	hash, err := f.contract.transact(ctx, nil, "executeArbitrage", asset, amount, buyRouter, sellRouter, slippageBps, deadline)
	if err != nil {
		return nil, err
	}

	receipt, err := f.contract.waitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	return &executor.Result{
		TxHash:  hash,
		Profit:  f.profitFromReceipt(receipt.Logs),
		GasUsed: receipt.GasUsed,
	}, nil
}

func (f *FlashLoan) profitFromReceipt(logs []*ethtypes.Log) decimal.Decimal {
	for _, entry := range logs {
		if entry.Address != f.contract.address || len(entry.Topics) == 0 {
			continue
		}
		if entry.Topics[0] != arbitrageExecutedTopic {
			continue
		}
		if len(entry.Data) < 32 {
			log.Warn().Str("tx", entry.TxHash.Hex()).Msg("ArbitrageExecuted event too short, reporting zero profit")
			return decimal.Zero
		}
		profitWei := new(big.Int).SetBytes(entry.Data[:32])
		return decimal.NewFromBigInt(profitWei, -assetDecimals)
	}
	return decimal.Zero
}

// Deposit adds liquidity to the arbitrage pool and waits for confirmation.
func (f *FlashLoan) Deposit(ctx context.Context, amount *big.Int) (common.Hash, error) {
	hash, err := f.contract.transact(ctx, nil, "deposit", amount)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := f.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// PoolMetrics is the contract-wide liquidity and profit summary.
type PoolMetrics struct {
	TotalLiquidity *big.Int
	TotalProfit    *big.Int
	ExecutionCount *big.Int
}

// GetPoolMetrics reads the pool summary.
func (f *FlashLoan) GetPoolMetrics(ctx context.Context) (*PoolMetrics, error) {
	out, err := f.contract.call(ctx, "getPoolMetrics")
	if err != nil {
		return nil, err
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("unexpected getPoolMetrics result arity %d", len(out))
	}
	return &PoolMetrics{
		TotalLiquidity: out[0].(*big.Int),
		TotalProfit:    out[1].(*big.Int),
		ExecutionCount: out[2].(*big.Int),
	}, nil
}

// UserPosition is one depositor's share of the pool.
type UserPosition struct {
	Shares      *big.Int
	ProfitShare *big.Int
}

// GetUserPosition reads a depositor's position.
func (f *FlashLoan) GetUserPosition(ctx context.Context, user common.Address) (*UserPosition, error) {
	out, err := f.contract.call(ctx, "getUserPosition", user)
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("unexpected getUserPosition result arity %d", len(out))
	}
	return &UserPosition{
		Shares:      out[0].(*big.Int),
		ProfitShare: out[1].(*big.Int),
	}, nil
}

func toAddresses(in map[string]string) map[string]common.Address {
	out := make(map[string]common.Address, len(in))
	for key, value := range in {
		if common.IsHexAddress(value) {
			out[key] = common.HexToAddress(value)
		}
	}
	return out
}

func toWei(units decimal.Decimal) *big.Int {
	return units.Shift(assetDecimals).BigInt()
}
