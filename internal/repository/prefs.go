package repository

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// PrefsRepository holds the session pointer and the sound preference.
type PrefsRepository struct {
	current *Value[model.User]
	sound   *Value[bool]
}

func NewPrefsRepository(s store.Store, origin string) *PrefsRepository {
	return &PrefsRepository{
		current: NewValue[model.User](s, model.KeyCurrentUser, origin),
		sound:   NewValue[bool](s, model.KeySoundEnabled, origin),
	}
}

// CurrentUser returns the persisted session user, or nil.
func (r *PrefsRepository) CurrentUser(ctx context.Context) (*model.User, error) {
	u, ok, err := r.current.Get(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SetCurrentUser stores u without its credential hash.
func (r *PrefsRepository) SetCurrentUser(ctx context.Context, u model.User) error {
	return r.current.Set(ctx, u.Public())
}

func (r *PrefsRepository) ClearCurrentUser(ctx context.Context) error {
	return r.current.Delete(ctx)
}

// SoundEnabled defaults to true when never set.
func (r *PrefsRepository) SoundEnabled(ctx context.Context) (bool, error) {
	on, ok, err := r.sound.Get(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return on, nil
}

func (r *PrefsRepository) SetSoundEnabled(ctx context.Context, on bool) error {
	return r.sound.Set(ctx, on)
}
