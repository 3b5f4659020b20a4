package app

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/rotrade-sync/internal/config"
	"github.com/oggyb/rotrade-sync/internal/repository"
	"github.com/oggyb/rotrade-sync/internal/store"
	"github.com/oggyb/rotrade-sync/internal/utils/idgen"
)

// AppContext holds shared dependencies (Store, repositories, Logger, etc.)
type AppContext struct {
	Config *config.Config
	Store  store.Store
	Repos  *repository.Repositories
	Logger *slog.Logger

	// Origin identifies this process on the change feed.
	Origin string
	IDs    *idgen.Generator
	Now    func() time.Time
}

// New creates a new AppContext
func New(cfg *config.Config, s store.Store, logger *slog.Logger) *AppContext {
	origin := uuid.NewString()
	a := &AppContext{
		Config: cfg,
		Store:  s,
		Repos:  repository.New(s, origin),
		Logger: logger,
		Origin: origin,
		IDs:    idgen.New(nil),
		Now:    time.Now,
	}
	a.Repos.ObserveIDs(a.IDs.Observe)
	return a
}

// WithClock swaps the clock and id generator, for tests and replays.
func (a *AppContext) WithClock(now func() time.Time) *AppContext {
	a.Now = now
	a.IDs = idgen.New(now)
	a.Repos.ObserveIDs(a.IDs.Observe)
	return a
}
