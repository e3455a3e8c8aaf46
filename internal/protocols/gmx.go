package protocols

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flasharb/internal/chain"
	"flasharb/internal/session"
)

// GMX adapts the GMX V2 exchange router: deposit/withdrawal requests plus
// the token transfer to the vault that precedes them.
type GMX struct {
	contract *contract
	vault    common.Address
}

// NewGMX binds the GMX exchange router.
func NewGMX(ctx context.Context, client *chain.Client, sess *session.Session, routerAddress, vaultAddress string) (*GMX, error) {
	bound, err := bindContract(ctx, client, sess, "gmx", routerAddress, gmxRouterABI)
	if err != nil {
		return nil, err
	}
	return &GMX{
		contract: bound,
		vault:    common.HexToAddress(vaultAddress),
	}, nil
}

// CreateDepositParams mirrors the router's createDeposit tuple.
type CreateDepositParams struct {
	Receiver          common.Address
	Market            common.Address
	InitialLongToken  common.Address
	InitialShortToken common.Address
	MinMarketTokens   *big.Int
	ExecutionFee      *big.Int
}

// CreateDeposit submits a deposit request. The execution fee rides along as
// transaction value; keepers complete the deposit asynchronously.
func (g *GMX) CreateDeposit(ctx context.Context, p CreateDepositParams) (common.Hash, error) {
	hash, err := g.contract.transact(ctx, p.ExecutionFee, "createDeposit", p)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := g.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// CreateWithdrawalParams mirrors the router's createWithdrawal tuple.
type CreateWithdrawalParams struct {
	Receiver            common.Address
	Market              common.Address
	MinLongTokenAmount  *big.Int
	MinShortTokenAmount *big.Int
	ExecutionFee        *big.Int
}

// CreateWithdrawal submits a withdrawal request.
func (g *GMX) CreateWithdrawal(ctx context.Context, p CreateWithdrawalParams) (common.Hash, error) {
	hash, err := g.contract.transact(ctx, p.ExecutionFee, "createWithdrawal", p)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := g.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// SendTokens moves tokens to the deposit vault ahead of createDeposit.
func (g *GMX) SendTokens(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	hash, err := g.contract.transact(ctx, nil, "sendTokens", token, g.vault, amount)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := g.contract.waitReceipt(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}
