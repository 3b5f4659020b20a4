package repository

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

type ReviewRepository struct {
	col *Collection[model.Review]
}

func NewReviewRepository(s store.Store, origin string) *ReviewRepository {
	return &ReviewRepository{col: NewCollection[model.Review](s, model.KeyReviews, origin)}
}

func (r *ReviewRepository) All(ctx context.Context) ([]model.Review, error) {
	return r.col.All(ctx)
}

// Create appends rev and returns the full collection as written, so the
// caller can recompute the target's rating from the same snapshot.
func (r *ReviewRepository) Create(ctx context.Context, rev model.Review) ([]model.Review, error) {
	return r.col.Mutate(ctx, func(items []model.Review) ([]model.Review, error) {
		return append(items, rev), nil
	})
}
