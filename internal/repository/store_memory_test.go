package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Value int `json:"value"`
}

func TestMemoryStoreUpdateCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.Set(ctx, PetKey("a"), record{Value: 1}))

		// writes are visible inside the same transaction
		var got record
		ok, err := tx.Get(ctx, PetKey("a"), &got)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, got.Value)
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx Tx) error {
		ok, err := tx.Has(ctx, PetKey("a"))
		assert.True(t, ok)
		return err
	})
	require.NoError(t, err)
}

func TestMemoryStoreUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.Set(ctx, PetKey("a"), record{Value: 1}))
		require.NoError(t, tx.Set(ctx, StakingKey("a"), record{Value: 2}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStoreViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.View(ctx, func(tx Tx) error {
		return tx.Set(ctx, PetKey("a"), record{})
	})
	assert.Error(t, err)
}

func TestMemoryStoreKeysAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		for _, owner := range []string{"b", "a"} {
			if err := tx.Set(ctx, PetKey(owner), record{}); err != nil {
				return err
			}
		}
		return tx.Set(ctx, GoalKey("a"), record{})
	}))

	keys, err := s.Keys(ctx, PetPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"pet:a", "pet:b"}, keys)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["pets"])
	assert.Equal(t, 1, stats["goals"])
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	ctx := context.Background()
	err := s.Update(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	err = s.View(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Keys(ctx, PetPrefix)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Stats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOwnerFromKey(t *testing.T) {
	owner, ok := OwnerFromKey(PetKey("abc"), PetPrefix)
	assert.True(t, ok)
	assert.Equal(t, "abc", owner)

	_, ok = OwnerFromKey(GoalKey("abc"), PetPrefix)
	assert.False(t, ok)
}
