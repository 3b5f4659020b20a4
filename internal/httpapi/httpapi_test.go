package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/config"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/httpapi"
	"github.com/oggyb/rotrade-sync/internal/logger"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/remote"
	"github.com/oggyb/rotrade-sync/internal/service/gateway"
	"github.com/oggyb/rotrade-sync/internal/service/marketplace"
	"github.com/oggyb/rotrade-sync/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = logger.Discard()

// newService returns a marketplace service over its own miniredis.
func newService(t *testing.T) *marketplace.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "rotrade:")
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.New()
	cfg.App.SupportUsername = "RoTradeAc"
	return marketplace.NewService(app.New(cfg, s, discard))
}

func newServer(t *testing.T, svc api.API, maintenance bool) *httptest.Server {
	t.Helper()
	cfg := config.New()
	cfg.HTTP.Maintenance = maintenance
	srv := httptest.NewServer(httpapi.NewRouter(cfg, svc, discard))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *remote.Client {
	return remote.New(srv.URL+httpapi.EndpointPath, 2*time.Second, 24*24*time.Hour, discard)
}

func TestRemoteClientRoundTrip(t *testing.T) {
	svc := newService(t)
	client := newClient(newServer(t, svc, false))
	ctx := context.Background()

	alice, err := client.Register(ctx, model.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Empty(t, alice.PasswordHash)

	bob, err := client.Register(ctx, model.Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = client.Register(ctx, model.Credentials{Username: "bob", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	_, err = client.Login(ctx, model.Credentials{Username: "alice", Password: "nope"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	ghost, err := client.SendMessage(ctx, model.MessageInput{FromUserID: alice.ID, ToUserID: 404, Content: "anyone?"})
	require.NoError(t, err)
	assert.Nil(t, ghost)

	l, err := client.CreateListing(ctx, model.ListingInput{
		UserID: alice.ID, Title: "Sword", Description: "rare",
		GameURL: "https://www.roblox.com/games/123/Blox-Fruits",
	})
	require.NoError(t, err)
	assert.Equal(t, "Blox Fruits", l.GameName)
	assert.True(t, l.ExpiresAt.After(l.CreatedAt))

	listings, err := client.GetListings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, l.ID, listings[0].ID)

	m, err := client.SendMessage(ctx, model.MessageInput{FromUserID: bob.ID, ToUserID: alice.ID, Content: "hi"})
	require.NoError(t, err)
	reply, err := client.SendMessage(ctx, model.MessageInput{FromUserID: alice.ID, ToUserID: bob.ID, Content: "hello", ReplyToID: &m.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, m.ID, *reply.ReplyToID)

	msgs, err := client.GetMessages(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	require.NoError(t, client.DeleteMessage(ctx, m.ID))
	msgs, err = client.GetMessages(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	rv, err := client.CreateReview(ctx, model.ReviewInput{FromUserID: bob.ID, ToUserID: alice.ID, Rating: 4, Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "bob", rv.FromUsername)

	reviews, err := client.GetReviews(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	users, err := client.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	r, err := client.CreateReport(ctx, model.ReportInput{ReporterID: bob.ID, ListingID: &l.ID, Reason: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "Sword", r.ListingTitle)

	reports, err := client.GetReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	require.NoError(t, client.DeleteListing(ctx, l.ID))
	listings, err = client.GetListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestMissingTargetIsNotFound(t *testing.T) {
	svc := newService(t)
	srv := newServer(t, svc, false)

	body := `{"userId": 99, "title": "Ghost", "description": "nobody owns this"}`
	resp, err := http.Post(srv.URL+"/?action=listing", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestModerationOverHTTP(t *testing.T) {
	svc := newService(t)
	client := newClient(newServer(t, svc, false))
	ctx := context.Background()

	support, err := client.Register(ctx, model.Credentials{Username: "RoTradeAc", Password: "pw"})
	require.NoError(t, err)
	alice, err := client.Register(ctx, model.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	bob, err := client.Register(ctx, model.Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	_, err = client.CreateListing(ctx, model.ListingInput{UserID: bob.ID, Title: "Scam", Description: "d"})
	require.NoError(t, err)
	r, err := client.CreateReport(ctx, model.ReportInput{ReporterID: alice.ID, ReportedUserID: &bob.ID, Reason: "scam"})
	require.NoError(t, err)

	err = client.DismissReport(ctx, alice.ID, r.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	err = client.DeleteAccount(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, client.DeleteAccount(ctx, support.ID, bob.ID))

	users, err := client.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	listings, err := client.GetListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)
	reports, err := client.GetReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)

	// already gone
	require.NoError(t, client.DismissReport(ctx, support.ID, r.ID))
}

func TestFallbackKeepsRemoteRejections(t *testing.T) {
	remoteSvc := newService(t)
	client := newClient(newServer(t, remoteSvc, false))
	ctx := context.Background()

	_, err := client.Register(ctx, model.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	local := newService(t)
	gw := gateway.New(client, local, config.ModeFallback, discard)

	_, err = gw.Register(ctx, model.Credentials{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
	_, err = gw.Login(ctx, model.Credentials{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	users, err := local.GetUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestDispatchErrors(t *testing.T) {
	srv := newServer(t, newService(t), false)

	cases := []struct {
		method, query string
		status        int
	}{
		{http.MethodGet, "?action=nope", http.StatusBadRequest},
		{http.MethodGet, "?action=register", http.StatusMethodNotAllowed},
		{http.MethodDelete, "?action=listing", http.StatusBadRequest},
		{http.MethodDelete, "?action=listing&id=abc", http.StatusBadRequest},
		{http.MethodGet, "?action=reviews&userId=x", http.StatusBadRequest},
		{http.MethodPost, "?action=login", http.StatusBadRequest},
		{http.MethodDelete, "?action=report&id=1", http.StatusBadRequest},
		{http.MethodDelete, "?action=user&actorId=1", http.StatusBadRequest},
		{http.MethodGet, "?action=user&id=1&actorId=1", http.StatusMethodNotAllowed},
	}
	for _, c := range cases {
		req, err := http.NewRequest(c.method, srv.URL+httpapi.EndpointPath+c.query, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		var body api.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		assert.Equal(t, c.status, resp.StatusCode, "%s %s", c.method, c.query)
		assert.NotEmpty(t, body.Error, "%s %s", c.method, c.query)
	}
}

func TestValidationIsBadRequest(t *testing.T) {
	srv := newServer(t, newService(t), false)

	resp, err := http.Post(srv.URL+"/?action=register", "application/json", strings.NewReader(`{"username":"","password":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body api.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Error, "username")
}

func TestRequestIDAndCORS(t *testing.T) {
	srv := newServer(t, newService(t), false)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/?action=users", nil)
	require.NoError(t, err)
	req.Header.Set(httpapi.RequestIDHeader, "req-1")
	req.Header.Set("Origin", "http://example.test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(httpapi.RequestIDHeader))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMaintenanceFallsBackToLocal(t *testing.T) {
	remoteSvc := newService(t)
	client := newClient(newServer(t, remoteSvc, true))
	ctx := context.Background()

	_, err := client.GetUsers(ctx)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)

	local := newService(t)
	_, err = local.Register(ctx, model.Credentials{Username: "carol", Password: "pw"})
	require.NoError(t, err)

	gw := gateway.New(client, local, config.ModeFallback, discard)
	users, err := gw.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)

	// Remote mode: a listing read degrades to an empty feed.
	gw = gateway.New(client, local, config.ModeRemote, discard)
	listings, err := gw.GetListings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings)
}
