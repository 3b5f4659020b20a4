package session_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/config"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/httpapi"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/remote"
	"github.com/oggyb/rotrade-sync/internal/service/gateway"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/session"
	"github.com/oggyb/rotrade-sync/internal/store"
)

type fixture struct {
	svc *marketplace.Service
	gw  *gateway.Gateway
	log *slog.Logger
}

// newService returns a marketplace service over its own miniredis.
func newService(t *testing.T, log *slog.Logger) *marketplace.Service {
	t.Helper()

	mr := miniredis.RunT(t)
	s := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "rotrade:")
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.New()
	cfg.App.SupportUsername = "RoTradeAc"
	return marketplace.NewService(app.New(cfg, s, log))
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	svc := newService(t, log)
	return &fixture{svc: svc, gw: gateway.New(nil, svc, config.ModeLocal, log), log: log}
}

// setupRemote serves a second service over the action endpoint and puts
// a fallback gateway in front of it. f.svc is the client's local store;
// the remote service is returned.
func setupRemote(t *testing.T) (*fixture, *marketplace.Service) {
	t.Helper()
	log := logger.Discard()
	remoteSvc := newService(t, log)
	srv := httptest.NewServer(httpapi.NewRouter(config.New(), remoteSvc, log))
	t.Cleanup(srv.Close)

	client := remote.New(srv.URL+httpapi.EndpointPath, 2*time.Second, 24*24*time.Hour, log)
	local := newService(t, log)
	return &fixture{svc: local, gw: gateway.New(client, local, config.ModeFallback, log), log: log}, remoteSvc
}

func (f *fixture) newSession() *session.Session {
	return session.New(f.gw, f.svc, f.log)
}

// loggedIn registers name and returns a session logged in as it.
func (f *fixture) loggedIn(t *testing.T, name string) *session.Session {
	t.Helper()
	s := f.newSession()
	_, err := s.Register(context.Background(), model.Credentials{Username: name, Password: "pw"})
	require.NoError(t, err)
	return s
}

func TestLoginLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	s := f.newSession()
	assert.Equal(t, session.StateLoggedOut, s.State())

	var states []session.State
	off := s.OnChange(func(snap session.Snapshot) { states = append(states, snap.State) })
	defer off()

	u, err := s.Register(ctx, model.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, session.StateLoggedIn, s.State())
	assert.Equal(t, []session.State{session.StateAuthenticating, session.StateLoggedIn}, states)

	// A second client restores from the persisted pointer.
	other := f.newSession()
	require.NoError(t, other.Restore(ctx))
	require.NotNil(t, other.User())
	assert.Equal(t, u.ID, other.User().ID)
	assert.Empty(t, other.User().PasswordHash)

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, session.StateLoggedOut, s.State())
	assert.Nil(t, s.User())

	// The account itself survives logout.
	_, err = s.Login(ctx, model.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = s.Login(ctx, model.Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Equal(t, session.StateLoggedOut, s.State())
}

func TestRequiresLogin(t *testing.T) {
	f := setup(t)
	s := f.newSession()

	_, err := s.CreateListing(context.Background(), model.ListingInput{Title: "t", Description: "d"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, s.OpenChat(context.Background(), 1, 0), apperr.ErrUnauthenticated)
}

func TestChatFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")

	listing, err := bob.CreateListing(ctx, model.ListingInput{Title: "Sword", Description: "sharp"})
	require.NoError(t, err)
	require.NotNil(t, listing)
	assert.Equal(t, bob.User().ID, listing.UserID)

	assert.True(t, apperr.IsValidation(alice.OpenChat(ctx, alice.User().ID, 0)))

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, listing.ID))
	snap := alice.Snapshot()
	assert.Equal(t, bob.User().ID, snap.ActiveChat)
	assert.Equal(t, session.TabChats, snap.ActiveTab)

	listings, err := f.svc.GetListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 1, listings[0].Views)

	_, err = alice.Send(ctx, "hi", nil)
	require.NoError(t, err)

	require.NoError(t, bob.OpenChat(ctx, alice.User().ID, 0))
	thread, err := bob.Conversation(ctx)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "hi", thread[0].Content)

	alice.CloseChat()
	_, err = alice.Send(ctx, "again", nil)
	assert.True(t, apperr.IsValidation(err))
}

func TestBlockClosesChatAndRefusesSend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, 0))
	_, err := alice.Send(ctx, "hi", nil)
	require.NoError(t, err)

	require.NoError(t, alice.Block(ctx, bob.User().ID))
	assert.Zero(t, alice.ActiveChat())

	msgs, err := f.svc.Thread(ctx, alice.User().ID, bob.User().ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, 0))
	_, err = alice.Send(ctx, "still there?", nil)
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, alice.Unblock(ctx, bob.User().ID))
	_, err = alice.Send(ctx, "hello again", nil)
	require.NoError(t, err)
}

func TestDeleteListingOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")
	support := f.loggedIn(t, "RoTradeAc")

	l, err := alice.CreateListing(ctx, model.ListingInput{Title: "Pet", Description: "cute"})
	require.NoError(t, err)

	assert.ErrorIs(t, bob.DeleteListing(ctx, l.ID), apperr.ErrForbidden)
	require.NoError(t, support.DeleteListing(ctx, l.ID))

	listings, err := f.svc.GetListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)

	// Unknown ids are a no-op.
	require.NoError(t, alice.DeleteListing(ctx, 42))
}

func TestReportsAndModeration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	support := f.loggedIn(t, "RoTradeAc")
	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, 0))
	r, err := alice.ReportActiveChat(ctx, "scam")
	require.NoError(t, err)
	require.NotNil(t, r.ReportedUserID)
	assert.Equal(t, bob.User().ID, *r.ReportedUserID)

	_, err = alice.Reports(ctx)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.True(t, support.IsSupport())
	queue, err := support.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	assert.ErrorIs(t, alice.DismissReport(ctx, r.ID), apperr.ErrForbidden)
	require.NoError(t, support.DismissReport(ctx, r.ID))

	require.NoError(t, support.DeleteAccount(ctx, bob.User().ID))
	users, err := f.svc.GetUsers(ctx)
	require.NoError(t, err)
	for _, u := range users {
		assert.NotEqual(t, "bob", u.Username)
	}
}

func TestModerationAgainstRemote(t *testing.T) {
	f, remoteSvc := setupRemote(t)
	ctx := context.Background()

	support := f.loggedIn(t, "RoTradeAc")
	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")
	_, err := bob.CreateListing(ctx, model.ListingInput{Title: "Scam", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, 0))
	first, err := alice.ReportActiveChat(ctx, "scam")
	require.NoError(t, err)
	second, err := alice.ReportActiveChat(ctx, "still scamming")
	require.NoError(t, err)

	queue, err := support.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	assert.ErrorIs(t, alice.DismissReport(ctx, first.ID), apperr.ErrForbidden)
	require.NoError(t, support.DismissReport(ctx, first.ID))

	queue, err = support.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	require.NoError(t, support.DeleteAccount(ctx, bob.User().ID))

	users, err := remoteSvc.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	listings, err := remoteSvc.GetListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)
	reports, err := remoteSvc.GetReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	// nothing reached the local store
	local, err := f.svc.GetUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestRemoteRejectionsKeepSessionLoggedOut(t *testing.T) {
	f, _ := setupRemote(t)
	ctx := context.Background()
	f.loggedIn(t, "alice")

	s := f.newSession()
	_, err := s.Register(ctx, model.Credentials{Username: "alice", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	assert.Equal(t, session.StateLoggedOut, s.State())

	_, err = s.Login(ctx, model.Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Equal(t, session.StateLoggedOut, s.State())
}

func TestListingBrowser(t *testing.T) {
	f, _ := setupRemote(t)
	ctx := context.Background()

	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")
	_, err := alice.CreateListing(ctx, model.ListingInput{
		Title: "Pet", Description: "rare pet",
		GameURL: "https://www.roblox.com/games/920587237/Adopt-Me",
	})
	require.NoError(t, err)
	for _, title := range []string{"Sword", "Shield", "Bow"} {
		_, err := bob.CreateListing(ctx, model.ListingInput{Title: title, Description: "gear"})
		require.NoError(t, err)
	}

	mine, err := alice.MyListings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Pet", mine[0].Title)

	tags, err := bob.ListingTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adopt Me"}, tags)

	found, err := bob.FilterListings(ctx, "pet", "Adopt Me")
	require.NoError(t, err)
	require.Len(t, found, 1)

	seen := map[int64]bool{}
	token := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 3)
		page, next, err := bob.ListingsPage(ctx, token, 3)
		require.NoError(t, err)
		for _, l := range page {
			assert.False(t, seen[l.ID])
			seen[l.ID] = true
		}
		if next == nil {
			break
		}
		token = *next
	}
	assert.Len(t, seen, 4)

	_, err = f.newSession().MyListings(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestReviewActiveChat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alice := f.loggedIn(t, "alice")
	bob := f.loggedIn(t, "bob")

	require.NoError(t, alice.OpenChat(ctx, bob.User().ID, 0))
	_, err := alice.ReviewActiveChat(ctx, 6, "great")
	assert.True(t, apperr.IsValidation(err))

	rv, err := alice.ReviewActiveChat(ctx, 4, "great")
	require.NoError(t, err)
	assert.Equal(t, 4, rv.Rating)

	rating, err := f.svc.ComputeRating(ctx, bob.User().ID)
	require.NoError(t, err)
	assert.Equal(t, model.Rating{Rating: 4, Count: 1}, rating)
}

func TestToggleSoundAndAvatar(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.loggedIn(t, "alice")

	on, err := alice.ToggleSound(ctx)
	require.NoError(t, err)
	assert.False(t, on)
	on, err = alice.ToggleSound(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	u, err := alice.UpdateAvatar(ctx, "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Contains(t, u.Avatar, "data:image/png;base64,")
	assert.Equal(t, u.Avatar, alice.User().Avatar)

	_, err = alice.UpdateAvatar(ctx, "image/gif", []byte("GIF"))
	assert.True(t, apperr.IsValidation(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "logged_in", session.StateLoggedIn.String())
	assert.Equal(t, "state(9)", session.State(9).String())
}
