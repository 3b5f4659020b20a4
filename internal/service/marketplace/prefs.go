package marketplace

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
)

func (s *Service) SoundEnabled(ctx context.Context) (bool, error) {
	return s.repos.Prefs.SoundEnabled(ctx)
}

func (s *Service) SetSoundEnabled(ctx context.Context, on bool) error {
	return s.repos.Prefs.SetSoundEnabled(ctx, on)
}

// CurrentUser returns the persisted session pointer, or nil.
func (s *Service) CurrentUser(ctx context.Context) (*model.User, error) {
	return s.repos.Prefs.CurrentUser(ctx)
}

func (s *Service) SetCurrentUser(ctx context.Context, u model.User) error {
	return s.repos.Prefs.SetCurrentUser(ctx, u)
}

// ClearCurrentUser drops the session pointer only; no other data changes.
func (s *Service) ClearCurrentUser(ctx context.Context) error {
	return s.repos.Prefs.ClearCurrentUser(ctx)
}
