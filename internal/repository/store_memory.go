package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store.
// Use this for development/testing; contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Update stages writes in an overlay and applies them only when fn succeeds.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx := &memoryTx{base: s.data, staged: make(map[string][]byte), writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for k, v := range tx.staged {
		s.data[k] = v
	}
	return nil
}

// View runs fn against the current contents.
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return fn(&memoryTx{base: s.data})
}

// Keys lists keys starting with prefix.
func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats returns entry counts.
func (s *MemoryStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "memory"}
	for name, prefix := range map[string]string{
		"pets":    PetPrefix,
		"staking": StakingPrefix,
		"goals":   GoalPrefix,
		"history": HistoryPrefix,
	} {
		keys, err := s.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		stats[name] = len(keys)
	}
	return stats, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryTx struct {
	base     map[string][]byte
	staged   map[string][]byte
	writable bool
}

func (t *memoryTx) lookup(key string) ([]byte, bool) {
	if v, ok := t.staged[key]; ok {
		return v, true
	}
	v, ok := t.base[key]
	return v, ok
}

func (t *memoryTx) Has(ctx context.Context, key string) (bool, error) {
	_, ok := t.lookup(key)
	return ok, nil
}

func (t *memoryTx) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := t.lookup(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (t *memoryTx) Set(ctx context.Context, key string, value interface{}) error {
	if !t.writable {
		return fmt.Errorf("set %s: read-only transaction", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	t.staged[key] = raw
	return nil
}

// Ensure all stores implement Store
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*sqlStore)(nil)
)
