package marketplace

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
)

// Register creates an account.
//
// Behavior:
//   - username and password are required.
//   - usernames are unique and case-sensitive; a taken name yields
//     errors.ErrDuplicate.
//   - the account starts with a generated avatar and no rating.
func (s *Service) Register(ctx context.Context, in model.Credentials) (*model.User, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := model.User{
		ID:           s.appCtx.IDs.Next(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Avatar:       model.DefaultAvatar(in.Username),
		CreatedAt:    s.appCtx.Now().UTC(),
	}
	if err := s.repos.Users.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, fmt.Errorf("username %q: %w", in.Username, err)
		}
		s.appCtx.Logger.Error("Register failed", "username", in.Username, "err", err)
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	pub := u.Public()
	return &pub, nil
}

// Login checks credentials. Unknown users and wrong passwords both yield
// errors.ErrUnauthenticated.
func (s *Service) Login(ctx context.Context, in model.Credentials) (*model.User, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	u, err := s.repos.Users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}

	pub := u.Public()
	return &pub, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// GetUser returns nil when the user does not exist.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repos.Users.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

func (s *Service) FindUserByName(ctx context.Context, username string) (*model.User, error) {
	u, err := s.repos.Users.FindByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

// UpdateAvatar stores an uploaded PNG/JPEG as a data: URL. The type is
// checked before anything is written.
func (s *Service) UpdateAvatar(ctx context.Context, userID int64, contentType string, data []byte) (*model.User, error) {
	avatar, err := model.ImageDataURL(contentType, data)
	if err != nil {
		return nil, err
	}
	u, err := s.repos.Users.Update(ctx, userID, func(u *model.User) { u.Avatar = avatar })
	if err != nil || u == nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}
