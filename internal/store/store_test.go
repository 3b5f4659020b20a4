package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/rotrade-sync/internal/db"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/store"
)

func newRedisStore(t *testing.T, mr *miniredis.Miniredis) *store.RedisStore {
	t.Helper()
	s := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "rotrade:")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newGormStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := db.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	s := store.NewGormStore(database, "rotrade:")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"redis": func(t *testing.T) store.Store { return newRedisStore(t, miniredis.RunT(t)) },
		"gorm":  func(t *testing.T) store.Store { return newGormStore(t) },
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			val, rev, err := s.Get(context.Background(), "users")
			require.NoError(t, err)
			assert.Nil(t, val)
			assert.Zero(t, rev)
		})
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			rev, err := s.CompareAndSwap(ctx, "listings", 0, []byte(`[1]`))
			require.NoError(t, err)
			assert.Equal(t, int64(1), rev)

			// creating again loses
			_, err = s.CompareAndSwap(ctx, "listings", 0, []byte(`[9]`))
			assert.ErrorIs(t, err, apperr.ErrConflict)

			rev, err = s.CompareAndSwap(ctx, "listings", 1, []byte(`[1,2]`))
			require.NoError(t, err)
			assert.Equal(t, int64(2), rev)

			// stale revision loses
			_, err = s.CompareAndSwap(ctx, "listings", 1, []byte(`[]`))
			assert.ErrorIs(t, err, apperr.ErrConflict)

			val, rev, err := s.Get(ctx, "listings")
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(val))
			assert.Equal(t, int64(2), rev)
		})
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_, err := s.CompareAndSwap(ctx, "current_user", 0, []byte(`{"id":1}`))
			require.NoError(t, err)
			require.NoError(t, s.Delete(ctx, "current_user"))

			val, rev, err := s.Get(ctx, "current_user")
			require.NoError(t, err)
			assert.Nil(t, val)
			assert.Zero(t, rev)

			_, err = s.CompareAndSwap(ctx, "users", 0, []byte(`[]`))
			require.NoError(t, err)
			_, err = s.CompareAndSwap(ctx, "messages", 0, []byte(`[]`))
			require.NoError(t, err)
			require.NoError(t, s.Clear(ctx))

			val, _, err = s.Get(ctx, "users")
			require.NoError(t, err)
			assert.Nil(t, val)
		})
	}
}

func TestStore_PublishSubscribe(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			sub, err := s.Subscribe(ctx)
			require.NoError(t, err)
			defer sub.Close()

			require.NoError(t, s.Publish(ctx, store.Change{Key: "messages", Revision: 3, Origin: "tab-a"}))

			select {
			case c := <-sub.Changes():
				assert.Equal(t, "messages", c.Key)
				assert.Equal(t, int64(3), c.Revision)
				assert.Equal(t, "tab-a", c.Origin)
			case <-time.After(2 * time.Second):
				t.Fatal("change not delivered")
			}
		})
	}
}

// Two stores on one Redis server behave like two browser tabs.
func TestRedisStore_CrossInstance(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	a, b := newRedisStore(t, mr), newRedisStore(t, mr)

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	_, err = a.CompareAndSwap(ctx, "reviews", 0, []byte(`[]`))
	require.NoError(t, err)
	require.NoError(t, a.Publish(ctx, store.Change{Key: "reviews", Revision: 1}))

	select {
	case c := <-sub.Changes():
		assert.Equal(t, "reviews", c.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered to second instance")
	}

	val, rev, err := b.Get(ctx, "reviews")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(val))
	assert.Equal(t, int64(1), rev)
	assert.True(t, mr.Exists("rotrade:reviews"))
}

func TestBroker_CloseEndsSubscriptions(t *testing.T) {
	b := store.NewBroker()
	sub := b.Subscribe()
	other := b.Subscribe()
	require.NoError(t, other.Close())
	require.NoError(t, other.Close())

	b.Publish(store.Change{Key: "users"})
	assert.Equal(t, "users", (<-sub.Changes()).Key)

	b.Close()
	_, ok := <-sub.Changes()
	assert.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late.Changes()
	assert.False(t, ok)
}
