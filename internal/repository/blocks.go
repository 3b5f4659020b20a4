package repository

import (
	"context"
	"slices"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// BlockRepository keeps one blocked:<userId> record per user.
type BlockRepository struct {
	store  store.Store
	origin string
}

func NewBlockRepository(s store.Store, origin string) *BlockRepository {
	return &BlockRepository{store: s, origin: origin}
}

func (r *BlockRepository) list(userID int64) *Value[[]int64] {
	return NewValue[[]int64](r.store, model.KeyBlocked(userID), r.origin)
}

// Blocked returns the ids userID has blocked.
func (r *BlockRepository) Blocked(ctx context.Context, userID int64) ([]int64, error) {
	ids, _, err := r.list(userID).Get(ctx)
	return ids, err
}

// IsBlocked reports whether owner has blocked other.
func (r *BlockRepository) IsBlocked(ctx context.Context, owner, other int64) (bool, error) {
	ids, err := r.Blocked(ctx, owner)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, other), nil
}

// Add is idempotent.
func (r *BlockRepository) Add(ctx context.Context, owner, other int64) error {
	_, err := r.list(owner).Update(ctx, func(ids []int64, _ bool) ([]int64, error) {
		if slices.Contains(ids, other) {
			return nil, ErrUnchanged
		}
		return append(ids, other), nil
	})
	return err
}

func (r *BlockRepository) Remove(ctx context.Context, owner, other int64) error {
	_, err := r.list(owner).Update(ctx, func(ids []int64, ok bool) ([]int64, error) {
		if !ok || !slices.Contains(ids, other) {
			return nil, ErrUnchanged
		}
		return slices.DeleteFunc(slices.Clone(ids), func(id int64) bool { return id == other }), nil
	})
	return err
}

// Drop deletes the whole block list of owner.
func (r *BlockRepository) Drop(ctx context.Context, owner int64) error {
	return r.list(owner).Delete(ctx)
}
