package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// maxAttempts bounds the compare-and-swap retry loop of a single mutation.
const maxAttempts = 32

// ErrUnchanged is returned by a mutation func to skip the write.
var ErrUnchanged = errors.New("unchanged")

// Collection is a named JSON array of T in the store.
//
// Every write replaces the whole array, guarded by the key's revision, and
// is followed by a change notification tagged with the key.
type Collection[T any] struct {
	store  store.Store
	key    string
	origin string
	now    func() time.Time

	idOf func(T) int64
	seen func(int64)
}

// NewCollection binds key to s. origin tags published changes.
func NewCollection[T any](s store.Store, key, origin string) *Collection[T] {
	return &Collection[T]{store: s, key: key, origin: origin, now: time.Now}
}

// Load returns the stored items and the revision they were read at.
func (c *Collection[T]) Load(ctx context.Context) ([]T, int64, error) {
	raw, rev, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, 0, err
	}
	if raw == nil {
		return nil, rev, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if c.seen != nil && len(items) > 0 {
		var highest int64
		for _, it := range items {
			highest = max(highest, c.idOf(it))
		}
		c.seen(highest)
	}
	return items, rev, nil
}

// observeIDs makes every Load report the highest id it read to seen.
func (c *Collection[T]) observeIDs(idOf func(T) int64, seen func(int64)) {
	c.idOf, c.seen = idOf, seen
}

// All returns the stored items.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	items, _, err := c.Load(ctx)
	return items, err
}

// Mutate reads the collection, applies fn and writes the result back.
//
// Behavior:
//   - fn may run more than once: a lost compare-and-swap reloads and retries.
//   - fn returning ErrUnchanged skips the write and the notification.
//   - any other fn error aborts without writing.
//
// Example:
//
//	listings.Mutate(ctx, func(items []model.Listing) ([]model.Listing, error) {
//		return append(items, l), nil
//	})
func (c *Collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) ([]T, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		items, rev, err := c.Load(ctx)
		if err != nil {
			return nil, err
		}

		next, err := fn(items)
		if errors.Is(err, ErrUnchanged) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.key, err)
		}

		newRev, err := c.store.CompareAndSwap(ctx, c.key, rev, raw)
		if errors.Is(err, apperr.ErrConflict) {
			logger.Debug("cas conflict, retrying", "key", c.key, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.notify(ctx, newRev)
		return next, nil
	}
	return nil, fmt.Errorf("%s: %w after %d attempts", c.key, apperr.ErrConflict, maxAttempts)
}

// Filter removes every item matching drop and returns how many went.
func (c *Collection[T]) Filter(ctx context.Context, drop func(T) bool) (int, error) {
	removed := 0
	_, err := c.Mutate(ctx, func(items []T) ([]T, error) {
		removed = 0
		kept := make([]T, 0, len(items))
		for _, it := range items {
			if drop(it) {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		if removed == 0 {
			return nil, ErrUnchanged
		}
		return kept, nil
	})
	return removed, err
}

// Append adds item at the end.
func (c *Collection[T]) Append(ctx context.Context, item T) error {
	_, err := c.Mutate(ctx, func(items []T) ([]T, error) {
		return append(items, item), nil
	})
	return err
}

func (c *Collection[T]) notify(ctx context.Context, rev int64) {
	notify(ctx, c.store, store.Change{Key: c.key, Revision: rev, Origin: c.origin, At: c.now()})
}

// notify publishes after a committed write. A failed publish only delays
// other sessions until their next poll, so it is logged, not returned.
func notify(ctx context.Context, s store.Store, ch store.Change) {
	if err := s.Publish(ctx, ch); err != nil {
		logger.Warn("publish change failed", "key", ch.Key, "err", err)
	}
}
