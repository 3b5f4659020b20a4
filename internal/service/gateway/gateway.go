// Package gateway picks which backend serves each entity operation: the
// remote endpoint, the local store, or remote with a local fallback.
package gateway

import (
	"context"
	"log/slog"

	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/remote"
)

// Gateway implements api.API on top of a remote and a local backend.
//
// Modes:
//   - remote: only the remote is called; errors propagate (listing reads
//     degrade to an empty feed).
//   - fallback: the remote is tried first; on a network failure, a 402 or
//     a 5xx a warning is logged and the local backend serves the call with
//     the same inputs. Any other remote answer (duplicate, bad credentials,
//     validation, forbidden) is returned as is.
//   - local: the remote is never called.
type Gateway struct {
	remote api.API
	local  api.API
	mode   string
	log    *slog.Logger
}

var _ api.API = (*Gateway)(nil)

// New builds a gateway. Without a remote, the mode is forced to local.
func New(remoteAPI, localAPI api.API, mode string, log *slog.Logger) *Gateway {
	switch mode {
	case config.ModeRemote, config.ModeFallback, config.ModeLocal:
	default:
		mode = config.ModeFallback
	}
	if remoteAPI == nil {
		mode = config.ModeLocal
	}
	return &Gateway{remote: remoteAPI, local: localAPI, mode: mode, log: log}
}

// NewFromConfig wires a remote.Client when REMOTE_URL is set.
func NewFromConfig(cfg *config.Config, localAPI api.API, log *slog.Logger) *Gateway {
	var r api.API
	if cfg.Remote.BaseURL != "" {
		r = remote.NewFromConfig(cfg, log)
	}
	g := New(r, localAPI, cfg.Remote.Mode, log)
	log.Info("gateway ready", "mode", g.mode, "remote", cfg.Remote.BaseURL)
	return g
}

func (g *Gateway) Mode() string { return g.mode }

// UsesRemote reports whether calls may reach the remote endpoint.
func (g *Gateway) UsesRemote() bool { return g.mode != config.ModeLocal }

// call routes fn according to the gateway mode.
func call[T any](g *Gateway, op string, fn func(api.API) (T, error)) (T, error) {
	switch g.mode {
	case config.ModeLocal:
		return fn(g.local)
	case config.ModeRemote:
		return fn(g.remote)
	}

	v, err := fn(g.remote)
	if err == nil || !remote.IsTransient(err) {
		return v, err
	}
	g.log.Warn("remote unavailable, serving from local store", "op", op, "err", err)
	return fn(g.local)
}

func exec(g *Gateway, op string, fn func(api.API) error) error {
	_, err := call(g, op, func(a api.API) (struct{}, error) { return struct{}{}, fn(a) })
	return err
}

func (g *Gateway) Register(ctx context.Context, in model.Credentials) (*model.User, error) {
	return call(g, api.ActionRegister, func(a api.API) (*model.User, error) { return a.Register(ctx, in) })
}

func (g *Gateway) Login(ctx context.Context, in model.Credentials) (*model.User, error) {
	return call(g, api.ActionLogin, func(a api.API) (*model.User, error) { return a.Login(ctx, in) })
}

// GetListings never fails in remote mode: an unreachable remote yields an
// empty feed.
func (g *Gateway) GetListings(ctx context.Context) ([]model.Listing, error) {
	listings, err := call(g, api.ActionListings, func(a api.API) ([]model.Listing, error) { return a.GetListings(ctx) })
	if err != nil && g.mode == config.ModeRemote && remote.IsTransient(err) {
		g.log.Warn("listings unavailable", "err", err)
		return []model.Listing{}, nil
	}
	return listings, err
}

func (g *Gateway) CreateListing(ctx context.Context, in model.ListingInput) (*model.Listing, error) {
	return call(g, api.ActionListing, func(a api.API) (*model.Listing, error) { return a.CreateListing(ctx, in) })
}

func (g *Gateway) DeleteListing(ctx context.Context, id int64) error {
	return exec(g, api.ActionListing, func(a api.API) error { return a.DeleteListing(ctx, id) })
}

func (g *Gateway) GetMessages(ctx context.Context, userID int64) ([]model.Message, error) {
	return call(g, api.ActionMessages, func(a api.API) ([]model.Message, error) { return a.GetMessages(ctx, userID) })
}

func (g *Gateway) SendMessage(ctx context.Context, in model.MessageInput) (*model.Message, error) {
	return call(g, api.ActionMessage, func(a api.API) (*model.Message, error) { return a.SendMessage(ctx, in) })
}

func (g *Gateway) DeleteMessage(ctx context.Context, id int64) error {
	return exec(g, api.ActionMessage, func(a api.API) error { return a.DeleteMessage(ctx, id) })
}

func (g *Gateway) GetUsers(ctx context.Context) ([]model.User, error) {
	return call(g, api.ActionUsers, func(a api.API) ([]model.User, error) { return a.GetUsers(ctx) })
}

func (g *Gateway) CreateReport(ctx context.Context, in model.ReportInput) (*model.Report, error) {
	return call(g, api.ActionReport, func(a api.API) (*model.Report, error) { return a.CreateReport(ctx, in) })
}

func (g *Gateway) GetReports(ctx context.Context) ([]model.Report, error) {
	return call(g, api.ActionReports, func(a api.API) ([]model.Report, error) { return a.GetReports(ctx) })
}

func (g *Gateway) DismissReport(ctx context.Context, actorID, reportID int64) error {
	return exec(g, api.ActionReport, func(a api.API) error { return a.DismissReport(ctx, actorID, reportID) })
}

func (g *Gateway) DeleteAccount(ctx context.Context, actorID, userID int64) error {
	return exec(g, api.ActionUser, func(a api.API) error { return a.DeleteAccount(ctx, actorID, userID) })
}

func (g *Gateway) CreateReview(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	return call(g, api.ActionReview, func(a api.API) (*model.Review, error) { return a.CreateReview(ctx, in) })
}

func (g *Gateway) GetReviews(ctx context.Context, userID int64) ([]model.Review, error) {
	return call(g, api.ActionReviews, func(a api.API) ([]model.Review, error) { return a.GetReviews(ctx, userID) })
}
