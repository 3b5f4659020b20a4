package marketplace

import (
	"context"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

// Block adds other to self's block list and deletes every message between
// the two. The deletion is not undone by Unblock.
func (s *Service) Block(ctx context.Context, self, other int64) error {
	if self == other {
		return apperr.InvalidField("userId", "cannot block yourself")
	}
	if err := s.repos.Blocks.Add(ctx, self, other); err != nil {
		return err
	}
	n, err := s.repos.Messages.DeleteBetween(ctx, self, other)
	if err != nil {
		return err
	}
	s.appCtx.Logger.Info("user blocked", "user_id", self, "blocked", other, "messages_deleted", n)
	return nil
}

func (s *Service) Unblock(ctx context.Context, self, other int64) error {
	return s.repos.Blocks.Remove(ctx, self, other)
}

// BlockedUsers returns the ids self has blocked.
func (s *Service) BlockedUsers(ctx context.Context, self int64) ([]int64, error) {
	ids, err := s.repos.Blocks.Blocked(ctx, self)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
