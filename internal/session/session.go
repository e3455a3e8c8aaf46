package session

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotConnected is returned when an operation requires a connected account.
var ErrNotConnected = errors.New("wallet not connected")

// SimulatedAccount is the placeholder account used by simulation-only runs,
// where nothing is signed but the connected-wallet check still applies.
var SimulatedAccount = common.HexToAddress("0x0000000000000000000000000000000000000001")

// EventType identifies a session change notification.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventChainChanged EventType = "chain_changed"
)

// Event carries a session change to subscribers so they can reset or
// re-initialize contract bindings.
type Event struct {
	Type    EventType
	Account common.Address
	ChainID *big.Int
}

// Session is the explicit wallet/session context shared by the coordinator
// and the protocol adapters. There is no ambient global; everything that
// needs session state holds a *Session.
type Session struct {
	mu        sync.RWMutex
	account   common.Address
	chainID   *big.Int
	key       *ecdsa.PrivateKey
	connected bool
	subs      []func(Event)
}

func New() *Session {
	return &Session{}
}

// Connect marks the session connected with an externally managed account.
// Signing is unavailable until ConnectKey is used instead.
func (s *Session) Connect(account common.Address, chainID *big.Int) {
	s.mu.Lock()
	s.account = account
	s.chainID = chainID
	s.key = nil
	s.connected = true
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	notify(subs, Event{Type: EventConnected, Account: account, ChainID: chainID})
}

// ConnectKey connects with a hex-encoded private key, enabling transaction
// signing for the live execution path.
func (s *Session) ConnectKey(hexKey string, chainID *big.Int) error {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	s.mu.Lock()
	s.account = account
	s.chainID = chainID
	s.key = key
	s.connected = true
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	notify(subs, Event{Type: EventConnected, Account: account, ChainID: chainID})
	return nil
}

// Disconnect clears the session state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.account = common.Address{}
	s.chainID = nil
	s.key = nil
	s.connected = false
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	notify(subs, Event{Type: EventDisconnected})
}

// SetChain switches the session to a different chain, keeping the account.
func (s *Session) SetChain(chainID *big.Int) {
	s.mu.Lock()
	s.chainID = chainID
	account := s.account
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	notify(subs, Event{Type: EventChainChanged, Account: account, ChainID: chainID})
}

// Subscribe registers a callback for session change events.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Session) Account() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// SignTx signs a transaction with the session key for the session chain.
func (s *Session) SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	s.mu.RLock()
	key, chainID, connected := s.key, s.chainID, s.connected
	s.mu.RUnlock()

	if !connected {
		return nil, ErrNotConnected
	}
	if key == nil {
		return nil, errors.New("session has no signing key")
	}
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), key)
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
