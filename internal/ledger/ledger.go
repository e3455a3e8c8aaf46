package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"flasharb/pkg/types"
)

// historyKey is the fixed key holding the deposit-history ledger.
const historyKey = "flasharb:deposit_history"

// Store persists the deposit-history ledger in a key-value store. The
// ledger is read at session start and appended to on each deposit or
// withdrawal; nothing else mutates it.
type Store struct {
	rdb *redis.Client
}

// New connects a ledger store.
func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewWithClient wraps an existing client, for tests.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Append adds one entry to the end of the ledger.
func (s *Store) Append(ctx context.Context, entry types.DepositEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	if err := s.rdb.RPush(ctx, historyKey, raw).Err(); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// History returns all ledger entries in insertion order.
func (s *Store) History(ctx context.Context) ([]types.DepositEntry, error) {
	raws, err := s.rdb.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	entries := make([]types.DepositEntry, 0, len(raws))
	for _, raw := range raws {
		var entry types.DepositEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}
