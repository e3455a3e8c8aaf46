package protocols

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"flasharb/internal/chain"
	"flasharb/internal/session"
)

// ErrNotDeployed marks a protocol whose contract is missing at the
// configured address. It blocks that protocol only; others stay usable.
var ErrNotDeployed = errors.New("contract not deployed at configured address")

const defaultGasLimit = 800000

// contract is a thin bound handle shared by the protocol adapters: parsed
// ABI, verified address, and the call/transact plumbing.
type contract struct {
	client  *chain.Client
	sess    *session.Session
	address common.Address
	abi     abi.ABI
}

// bindContract parses the ABI, validates the address, and verifies code is
// actually deployed there.
func bindContract(ctx context.Context, client *chain.Client, sess *session.Session, name, address, abiJSON string) (*contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%s: invalid contract address %q", name, address)
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse ABI: %w", name, err)
	}

	addr := common.HexToAddress(address)
	code, err := client.CodeAt(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check contract code: %w", name, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s at %s: %w", name, addr.Hex(), ErrNotDeployed)
	}

	return &contract{
		client:  client,
		sess:    sess,
		address: addr,
		abi:     parsed,
	}, nil
}

// call executes a read-only method and unpacks the results.
func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := c.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// transact signs and broadcasts a state-changing method through the session
// key and returns the transaction hash.
func (c *contract) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	if !c.sess.Connected() {
		return common.Hash{}, session.ErrNotConnected
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.sess.Account())
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Value:    value,
		Gas:      defaultGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.sess.SignTx(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign %s transaction: %w", method, err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}
	return signed.Hash(), nil
}

// waitReceipt awaits mining and fails on a reverted transaction.
func (c *contract) waitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := c.client.WaitMined(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("execution reverted: transaction %s", hash.Hex())
	}
	return receipt, nil
}
