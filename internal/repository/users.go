package repository

import (
	"context"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// UserRepository provides access to the users collection.
type UserRepository struct {
	col *Collection[model.User]
}

func NewUserRepository(s store.Store, origin string) *UserRepository {
	return &UserRepository{col: NewCollection[model.User](s, model.KeyUsers, origin)}
}

func (r *UserRepository) All(ctx context.Context) ([]model.User, error) {
	return r.col.All(ctx)
}

// FindByID returns nil (and no error) when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	users, err := r.col.All(ctx)
	if err != nil {
		return nil, err
	}
	return model.FindUser(users, id), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	users, err := r.col.All(ctx)
	if err != nil {
		return nil, err
	}
	return model.FindUserByName(users, username), nil
}

// Create appends u unless the username is taken.
//
// Behavior:
//   - Uniqueness is checked inside the compare-and-swap loop, so two
//     sessions racing for the same name cannot both win.
//   - Returns errors.ErrDuplicate when the name exists.
func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.col.Mutate(ctx, func(users []model.User) ([]model.User, error) {
		if model.FindUserByName(users, u.Username) != nil {
			return nil, apperr.ErrDuplicate
		}
		return append(users, u), nil
	})
	return err
}

// Update applies fn to the user with id. A missing user is a no-op and
// yields nil.
func (r *UserRepository) Update(ctx context.Context, id int64, fn func(u *model.User)) (*model.User, error) {
	var updated *model.User
	_, err := r.col.Mutate(ctx, func(users []model.User) ([]model.User, error) {
		updated = nil
		next := make([]model.User, len(users))
		copy(next, users)
		u := model.FindUser(next, id)
		if u == nil {
			return nil, ErrUnchanged
		}
		fn(u)
		cp := *u
		updated = &cp
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the user and reports whether it existed.
func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.col.Filter(ctx, func(u model.User) bool { return u.ID == id })
	return n > 0, err
}
