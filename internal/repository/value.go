package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// Value is a single JSON document under key (session pointer, preferences,
// block lists).
type Value[T any] struct {
	store  store.Store
	key    string
	origin string
}

func NewValue[T any](s store.Store, key, origin string) *Value[T] {
	return &Value[T]{store: s, key: key, origin: origin}
}

// Get returns the value and whether it exists.
func (v *Value[T]) Get(ctx context.Context) (T, bool, error) {
	var out T
	raw, _, err := v.store.Get(ctx, v.key)
	if err != nil || raw == nil {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", v.key, err)
	}
	return out, true, nil
}

// Update applies fn to the current value (zero value and false when
// missing). fn returning ErrUnchanged skips the write.
func (v *Value[T]) Update(ctx context.Context, fn func(cur T, ok bool) (T, error)) (T, error) {
	var zero T
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, rev, err := v.store.Get(ctx, v.key)
		if err != nil {
			return zero, err
		}
		var cur T
		ok := raw != nil
		if ok {
			if err := json.Unmarshal(raw, &cur); err != nil {
				return zero, fmt.Errorf("decode %s: %w", v.key, err)
			}
		}

		next, err := fn(cur, ok)
		if errors.Is(err, ErrUnchanged) {
			return cur, nil
		}
		if err != nil {
			return zero, err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return zero, fmt.Errorf("encode %s: %w", v.key, err)
		}
		newRev, err := v.store.CompareAndSwap(ctx, v.key, rev, encoded)
		if errors.Is(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return zero, err
		}
		notify(ctx, v.store, store.Change{Key: v.key, Revision: newRev, Origin: v.origin, At: time.Now()})
		return next, nil
	}
	return zero, fmt.Errorf("%s: %w after %d attempts", v.key, apperr.ErrConflict, maxAttempts)
}

// Set overwrites the value.
func (v *Value[T]) Set(ctx context.Context, val T) error {
	_, err := v.Update(ctx, func(T, bool) (T, error) { return val, nil })
	return err
}

// Delete removes the key and announces it.
func (v *Value[T]) Delete(ctx context.Context) error {
	if err := v.store.Delete(ctx, v.key); err != nil {
		return err
	}
	notify(ctx, v.store, store.Change{Key: v.key, Origin: v.origin, At: time.Now()})
	return nil
}
