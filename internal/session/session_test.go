package session

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector key, never used with real funds.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestConnectDisconnect(t *testing.T) {
	sess := New()
	assert.False(t, sess.Connected())

	var events []EventType
	sess.Subscribe(func(ev Event) {
		events = append(events, ev.Type)
	})

	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	sess.Connect(account, big.NewInt(42161))

	assert.True(t, sess.Connected())
	assert.Equal(t, account, sess.Account())
	assert.Equal(t, int64(42161), sess.ChainID().Int64())

	sess.SetChain(big.NewInt(1))
	assert.Equal(t, int64(1), sess.ChainID().Int64())

	sess.Disconnect()
	assert.False(t, sess.Connected())
	assert.Equal(t, common.Address{}, sess.Account())

	assert.Equal(t, []EventType{EventConnected, EventChainChanged, EventDisconnected}, events)
}

func TestConnectKeyDerivesAccount(t *testing.T) {
	sess := New()
	require.NoError(t, sess.ConnectKey(testKeyHex, big.NewInt(42161)))

	assert.True(t, sess.Connected())
	assert.NotEqual(t, common.Address{}, sess.Account())
}

func TestConnectKeyInvalid(t *testing.T) {
	sess := New()
	assert.Error(t, sess.ConnectKey("not-a-key", big.NewInt(1)))
	assert.False(t, sess.Connected())
}

func TestSignTx(t *testing.T) {
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		To:       &common.Address{},
		Value:    big.NewInt(0),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})

	t.Run("disconnected", func(t *testing.T) {
		sess := New()
		_, err := sess.SignTx(tx)
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("no signing key", func(t *testing.T) {
		sess := New()
		sess.Connect(SimulatedAccount, big.NewInt(1))
		_, err := sess.SignTx(tx)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotConnected)
	})

	t.Run("signed", func(t *testing.T) {
		sess := New()
		require.NoError(t, sess.ConnectKey(testKeyHex, big.NewInt(42161)))

		signed, err := sess.SignTx(tx)
		require.NoError(t, err)

		sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(42161)), signed)
		require.NoError(t, err)
		assert.Equal(t, sess.Account(), sender)
	})
}
