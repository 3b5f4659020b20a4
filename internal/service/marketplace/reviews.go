package marketplace

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
)

// CreateReview stores a review and refreshes the target's cached rating.
//
// Behavior:
//   - comment is required, rating must be 1..5, self-review is rejected.
//   - the rating is recomputed from every review of the target, never
//     adjusted incrementally.
//   - an unknown author or target is a silent no-op.
func (s *Service) CreateReview(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, err
	}
	author := model.FindUser(users, in.FromUserID)
	target := model.FindUser(users, in.ToUserID)
	if author == nil || target == nil {
		return nil, nil
	}

	r := model.Review{
		ID:           s.appCtx.IDs.Next(),
		FromUserID:   author.ID,
		FromUsername: author.Username,
		ToUserID:     target.ID,
		Rating:       in.Rating,
		Comment:      in.Comment,
		CreatedAt:    s.appCtx.Now().UTC(),
	}
	if _, err := s.repos.Reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := s.refreshRating(ctx, target.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// refreshRating caches ComputeRating on the user record.
func (s *Service) refreshRating(ctx context.Context, userID int64) error {
	reviews, err := s.repos.Reviews.All(ctx)
	if err != nil {
		return err
	}
	rating := model.ComputeRating(reviews, userID)
	_, err = s.repos.Users.Update(ctx, userID, func(u *model.User) {
		u.Rating = rating.Rating
		u.ReviewsCount = rating.Count
	})
	return err
}

// GetReviews returns the reviews targeting userID, or all for 0.
func (s *Service) GetReviews(ctx context.Context, userID int64) ([]model.Review, error) {
	reviews, err := s.repos.Reviews.All(ctx)
	if err != nil {
		return nil, err
	}
	if userID != 0 {
		reviews = model.ReviewsFor(reviews, userID)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

// ComputeRating aggregates the reviews of userID.
func (s *Service) ComputeRating(ctx context.Context, userID int64) (model.Rating, error) {
	reviews, err := s.repos.Reviews.All(ctx)
	if err != nil {
		return model.Rating{}, err
	}
	return model.ComputeRating(reviews, userID), nil
}
