package marketplace

import (
	"context"
	"sort"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/utils/pagination"
)

// CreateListing publishes a listing for in.UserID.
//
// Behavior:
//   - title and description are required.
//   - a game URL must point at a game page; its name is derived from it.
//   - listings without an image get the default one.
//   - expiresAt = createdAt + listing TTL (24 days by default).
//   - an unknown owner is a silent no-op (nil listing, nil error).
func (s *Service) CreateListing(ctx context.Context, in model.ListingInput) (*model.Listing, error) {
	in.Normalize()
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	gameName := ""
	if in.GameURL != "" {
		name, ok := model.ExtractGameName(in.GameURL)
		if !ok {
			return nil, apperr.InvalidField("gameUrl", "not a game page link")
		}
		gameName = name
	}

	owner, err := s.repos.Users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		s.appCtx.Logger.Debug("CreateListing: owner missing, ignoring", "user_id", in.UserID)
		return nil, nil
	}

	image := in.ImageURL
	if image == "" {
		image = model.DefaultListingImage
	}
	now := s.appCtx.Now().UTC()
	l := model.Listing{
		ID:          s.appCtx.IDs.Next(),
		UserID:      owner.ID,
		Username:    owner.Username,
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    image,
		GameURL:     in.GameURL,
		GameName:    gameName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.appCtx.Config.App.ListingTTL),
	}
	if err := s.repos.Listings.Create(ctx, l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListings returns the visible listings, pruning expired ones from the
// store on the way.
func (s *Service) GetListings(ctx context.Context) ([]model.Listing, error) {
	listings, removed, err := s.repos.Listings.Active(ctx, s.appCtx.Now())
	if err != nil {
		s.appCtx.Logger.Error("GetListings failed", "err", err)
		return nil, err
	}
	if removed > 0 {
		s.appCtx.Logger.Debug("pruned expired listings", "count", removed)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

// PruneExpiredListings compacts the store and reports how many listings
// expired.
func (s *Service) PruneExpiredListings(ctx context.Context) (int, error) {
	_, removed, err := s.repos.Listings.Active(ctx, s.appCtx.Now())
	return removed, err
}

// DeleteListing is a no-op for unknown ids.
func (s *Service) DeleteListing(ctx context.Context, id int64) error {
	_, err := s.repos.Listings.Delete(ctx, id)
	return err
}

// IncrementViews counts one more view. Unknown ids are ignored.
func (s *Service) IncrementViews(ctx context.Context, listingID int64) error {
	_, err := s.repos.Listings.IncrementViews(ctx, listingID)
	return err
}

// ListingSource is anything that can list the visible listings: the local
// service, the remote client or the gateway.
type ListingSource interface {
	GetListings(ctx context.Context) ([]model.Listing, error)
}

// Catalog answers the listing browser's queries over a ListingSource.
type Catalog struct {
	src ListingSource
}

func NewCatalog(src ListingSource) *Catalog {
	return &Catalog{src: src}
}

func (c *Catalog) UserListings(ctx context.Context, userID int64) ([]model.Listing, error) {
	listings, err := c.src.GetListings(ctx)
	if err != nil {
		return nil, err
	}
	return model.ListingsByOwner(listings, userID), nil
}

// ListingTags returns the distinct game names of visible listings.
func (c *Catalog) ListingTags(ctx context.Context) ([]string, error) {
	listings, err := c.src.GetListings(ctx)
	if err != nil {
		return nil, err
	}
	return model.ListingTags(listings), nil
}

// FilterListings searches visible listings by text and game tag.
func (c *Catalog) FilterListings(ctx context.Context, query, tag string) ([]model.Listing, error) {
	listings, err := c.src.GetListings(ctx)
	if err != nil {
		return nil, err
	}
	return model.FilterListings(listings, query, tag), nil
}

// ListingsPage returns visible listings newest first.
//
// Behavior:
//   - Ordered by createdAt DESC, id DESC.
//   - token is the opaque cursor of the previous page ("" for the first).
//   - The next token is nil on the last page.
//
// Example:
//
//	page, next, err := catalog.ListingsPage(ctx, "", 20)
func (c *Catalog) ListingsPage(ctx context.Context, token string, limit int) ([]model.Listing, *string, error) {
	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, nil, apperr.InvalidField("pageToken", err.Error())
	}
	if limit <= 0 {
		limit = 20
	}

	listings, err := c.src.GetListings(ctx)
	if err != nil {
		return nil, nil, err
	}
	sorted := make([]model.Listing, len(listings))
	copy(sorted, listings)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := sorted[i].CreatedAt.UnixMilli(), sorted[j].CreatedAt.UnixMilli()
		if ti != tj {
			return ti > tj
		}
		return sorted[i].ID > sorted[j].ID
	})

	// apply cursor
	start := 0
	if !cursor.IsZero() {
		start = len(sorted)
		for i, l := range sorted {
			ts := l.CreatedAt.UnixMilli()
			if ts < cursor.CreatedUnix || (ts == cursor.CreatedUnix && l.ID < cursor.ID) {
				start = i
				break
			}
		}
	}

	page := sorted[start:]
	var next *string
	if len(page) > limit {
		last := page[limit-1]
		tok, _ := pagination.Encode(pagination.Cursor{ID: last.ID, CreatedUnix: last.CreatedAt.UnixMilli()})
		next = &tok
		page = page[:limit]
	}
	return page, next, nil
}
