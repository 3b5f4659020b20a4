package repository

import (
	"context"
	"time"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// ListingRepository provides access to the listings collection.
type ListingRepository struct {
	col *Collection[model.Listing]
}

func NewListingRepository(s store.Store, origin string) *ListingRepository {
	return &ListingRepository{col: NewCollection[model.Listing](s, model.KeyListings, origin)}
}

// All returns the stored listings without pruning.
func (r *ListingRepository) All(ctx context.Context) ([]model.Listing, error) {
	return r.col.All(ctx)
}

// Active returns the listings visible at now and prunes expired ones.
//
// Behavior:
//   - Keeps listings with expiresAt > now.
//   - If anything expired, the pruned set is written back (compaction).
//   - If nothing expired, no write and no change notification happen.
func (r *ListingRepository) Active(ctx context.Context, now time.Time) ([]model.Listing, int, error) {
	items, _, err := r.col.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	active := model.ActiveListings(items, now)
	if len(active) == len(items) {
		return active, 0, nil
	}

	removed, err := r.col.Filter(ctx, func(l model.Listing) bool { return !l.Active(now) })
	if err != nil {
		return nil, 0, err
	}
	// re-read: another session may have appended while we compacted
	items, err = r.col.All(ctx)
	if err != nil {
		return nil, 0, err
	}
	return model.ActiveListings(items, now), removed, nil
}

func (r *ListingRepository) Create(ctx context.Context, l model.Listing) error {
	return r.col.Append(ctx, l)
}

func (r *ListingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.col.Filter(ctx, func(l model.Listing) bool { return l.ID == id })
	return n > 0, err
}

func (r *ListingRepository) DeleteByOwner(ctx context.Context, userID int64) (int, error) {
	return r.col.Filter(ctx, func(l model.Listing) bool { return l.UserID == userID })
}

// IncrementViews bumps the view counter. A missing listing is a no-op.
func (r *ListingRepository) IncrementViews(ctx context.Context, id int64) (bool, error) {
	found := false
	_, err := r.col.Mutate(ctx, func(items []model.Listing) ([]model.Listing, error) {
		found = false
		next := make([]model.Listing, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID == id {
				next[i].Views++
				found = true
				return next, nil
			}
		}
		return nil, ErrUnchanged
	})
	return found, err
}
