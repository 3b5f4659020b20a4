package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/repository"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// setupStore returns a store on an in-memory Redis.
func setupStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCollection_ConcurrentAppendsKeepEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	const writers = 10
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			// each writer is its own "tab"
			msgs := repository.NewMessageRepository(s, "tab")
			assert.NoError(t, msgs.Create(ctx, model.Message{ID: id, FromUserID: 1, ToUserID: 2, Content: "x"}))
		}(int64(i))
	}
	wg.Wait()

	all, err := repository.NewMessageRepository(s, "check").All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, writers)
}

func TestCollection_MutatePublishesChange(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	reports := repository.NewReportRepository(s, "tab-1")
	require.NoError(t, reports.Create(ctx, model.Report{ID: 1, Reason: "spam"}))

	select {
	case c := <-sub.Changes():
		assert.Equal(t, model.KeyReports, c.Key)
		assert.Equal(t, "tab-1", c.Origin)
		assert.Equal(t, int64(1), c.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("no change published")
	}

	// deleting a missing id neither writes nor publishes
	ok, err := reports.Delete(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	select {
	case c := <-sub.Changes():
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRepositories_ObserveIDsSeesEveryLoad(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	// written by another client
	other := repository.New(s, "other")
	require.NoError(t, other.Listings.Create(ctx, model.Listing{ID: 900, Title: "t"}))
	require.NoError(t, other.Messages.Create(ctx, model.Message{ID: 950, FromUserID: 1, ToUserID: 2}))

	var highest int64
	repos := repository.New(s, "me")
	repos.ObserveIDs(func(id int64) { highest = max(highest, id) })

	_, err := repos.Users.All(ctx)
	require.NoError(t, err)
	assert.Zero(t, highest)

	_, err = repos.Listings.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), highest)

	_, err = repos.Messages.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(950), highest)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(setupStore(t), "")

	require.NoError(t, users.Create(ctx, model.User{ID: 1, Username: "alice"}))
	err := users.Create(ctx, model.User{ID: 2, Username: "alice"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	require.NoError(t, users.Create(ctx, model.User{ID: 3, Username: "Alice"}))

	u, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)

	updated, err := users.Update(ctx, 1, func(u *model.User) { u.Rating = 4.5 })
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 4.5, updated.Rating)

	missing, err := users.Update(ctx, 42, func(u *model.User) { u.Rating = 1 })
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err := users.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	u, err = users.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestListingRepository_ActivePrunes(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	listings := repository.NewListingRepository(s, "")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, listings.Create(ctx, model.Listing{ID: 1, ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, listings.Create(ctx, model.Listing{ID: 2, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, listings.Create(ctx, model.Listing{ID: 3, ExpiresAt: now}))

	active, removed, err := listings.Active(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].ID)

	stored, err := listings.All(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, removed, err = listings.Active(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)

	ok, err := listings.IncrementViews(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = listings.IncrementViews(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, _ = listings.All(ctx)
	assert.Equal(t, 1, stored[0].Views)
}

func TestMessageRepository_DeleteBetween(t *testing.T) {
	ctx := context.Background()
	msgs := repository.NewMessageRepository(setupStore(t), "")

	for i, m := range []model.Message{
		{FromUserID: 1, ToUserID: 2},
		{FromUserID: 2, ToUserID: 1},
		{FromUserID: 1, ToUserID: 3},
	} {
		m.ID = int64(i + 1)
		require.NoError(t, msgs.Create(ctx, m))
	}

	n, err := msgs.DeleteBetween(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := msgs.All(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, int64(3), left[0].ToUserID)
}

func TestBlockRepository(t *testing.T) {
	ctx := context.Background()
	blocks := repository.NewBlockRepository(setupStore(t), "")

	require.NoError(t, blocks.Add(ctx, 1, 2))
	require.NoError(t, blocks.Add(ctx, 1, 2))
	require.NoError(t, blocks.Add(ctx, 1, 3))

	ids, err := blocks.Blocked(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)

	ok, err := blocks.IsBlocked(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, ok, "blocking is one-directional")

	require.NoError(t, blocks.Remove(ctx, 1, 2))
	ids, _ = blocks.Blocked(ctx, 1)
	assert.Equal(t, []int64{3}, ids)

	require.NoError(t, blocks.Drop(ctx, 1))
	ids, _ = blocks.Blocked(ctx, 1)
	assert.Empty(t, ids)
}

func TestPrefsRepository(t *testing.T) {
	ctx := context.Background()
	prefs := repository.NewPrefsRepository(setupStore(t), "")

	on, err := prefs.SoundEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, prefs.SetSoundEnabled(ctx, false))
	on, _ = prefs.SoundEnabled(ctx)
	assert.False(t, on)

	u, err := prefs.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, prefs.SetCurrentUser(ctx, model.User{ID: 7, Username: "bob", PasswordHash: "secret"}))
	u, err = prefs.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "bob", u.Username)
	assert.Empty(t, u.PasswordHash)

	require.NoError(t, prefs.ClearCurrentUser(ctx))
	u, _ = prefs.CurrentUser(ctx)
	assert.Nil(t, u)
}
