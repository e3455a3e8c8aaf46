package protocols

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flasharb/internal/chain"
	"flasharb/internal/session"
)

// Aave adapts the Aave V3 pool contract: supply, withdraw, and the account
// health read used by the dashboard.
type Aave struct {
	contract *contract
}

// NewAave binds the Aave pool contract.
func NewAave(ctx context.Context, client *chain.Client, sess *session.Session, address string) (*Aave, error) {
	bound, err := bindContract(ctx, client, sess, "aave", address, aavePoolABI)
	if err != nil {
		return nil, err
	}
	return &Aave{contract: bound}, nil
}

// Supply deposits an asset into the pool on behalf of the session account.
func (a *Aave) Supply(ctx context.Context, asset common.Address, amount *big.Int) (common.Hash, error) {
	hash, err := a.contract.transact(ctx, nil, "supply", asset, amount, a.contract.sess.Account(), uint16(0))
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := a.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// Withdraw pulls a supplied asset back to the session account.
func (a *Aave) Withdraw(ctx context.Context, asset common.Address, amount *big.Int) (common.Hash, error) {
	hash, err := a.contract.transact(ctx, nil, "withdraw", asset, amount, a.contract.sess.Account())
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := a.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// AccountData mirrors getUserAccountData. Base-currency values use Aave's
// 8-decimal base units; health factor is WAD-scaled.
type AccountData struct {
	TotalCollateralBase         *big.Int
	TotalDebtBase               *big.Int
	AvailableBorrowsBase        *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}

// GetUserAccountData reads the account-wide position summary.
func (a *Aave) GetUserAccountData(ctx context.Context, user common.Address) (*AccountData, error) {
	out, err := a.contract.call(ctx, "getUserAccountData", user)
	if err != nil {
		return nil, err
	}
	if len(out) != 6 {
		return nil, fmt.Errorf("unexpected getUserAccountData result arity %d", len(out))
	}
	return &AccountData{
		TotalCollateralBase:         out[0].(*big.Int),
		TotalDebtBase:               out[1].(*big.Int),
		AvailableBorrowsBase:        out[2].(*big.Int),
		CurrentLiquidationThreshold: out[3].(*big.Int),
		LTV:                         out[4].(*big.Int),
		HealthFactor:                out[5].(*big.Int),
	}, nil
}
