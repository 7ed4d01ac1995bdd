package service

import (
	"context"
	"fmt"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/repository"
)

const (
	// DefaultHistoryLimit and MaxHistoryLimit bound history queries.
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// recordHistory appends entry to the owner's history inside tx, so it commits or rolls
// back with the balance change it describes.
func (b *ledgerBase) recordHistory(ctx context.Context, tx repository.Tx, owner string, entry model.HistoryEntry) error {
	var seq uint64
	if _, err := tx.Get(ctx, repository.HistorySeqKey(b.name, owner), &seq); err != nil {
		return err
	}
	seq++

	entry.Seq = seq
	if err := tx.Set(ctx, repository.HistoryKey(b.name, owner, seq), entry); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return tx.Set(ctx, repository.HistorySeqKey(b.name, owner), seq)
}

// history returns up to limit of the owner's entries, newest first.
func (b *ledgerBase) history(ctx context.Context, owner string, limit int) ([]model.HistoryEntry, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	keys, err := b.store.Keys(ctx, repository.HistoryOwnerPrefix(b.name, owner))
	if err != nil {
		return nil, err
	}
	if len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	entries := make([]model.HistoryEntry, 0, len(keys))
	err = b.store.View(ctx, func(tx repository.Tx) error {
		for i := len(keys) - 1; i >= 0; i-- {
			var e model.HistoryEntry
			found, err := tx.Get(ctx, keys[i], &e)
			if err != nil {
				return err
			}
			if found {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
