// Package api is the entity surface shared by the local store-backed
// service, the remote HTTP client and the fallback gateway, plus the wire
// shapes of the action endpoint.
package api

import (
	"context"

	"github.com/oggyb/rotrade-sync/internal/model"
)

// Actions of the single action-dispatched endpoint.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionListings = "listings"
	ActionListing  = "listing"
	ActionMessages = "messages"
	ActionMessage  = "message"
	ActionUsers    = "users"
	ActionReport   = "report"
	ActionReports  = "reports"
	ActionReview   = "review"
	ActionReviews  = "reviews"
	ActionUser     = "user"
)

// API is implemented by marketplace.Service (local), remote.Client and
// gateway.Gateway. A userID of 0 means "all".
type API interface {
	Register(ctx context.Context, in model.Credentials) (*model.User, error)
	Login(ctx context.Context, in model.Credentials) (*model.User, error)

	GetListings(ctx context.Context) ([]model.Listing, error)
	CreateListing(ctx context.Context, in model.ListingInput) (*model.Listing, error)
	DeleteListing(ctx context.Context, id int64) error

	GetMessages(ctx context.Context, userID int64) ([]model.Message, error)
	SendMessage(ctx context.Context, in model.MessageInput) (*model.Message, error)
	DeleteMessage(ctx context.Context, id int64) error

	GetUsers(ctx context.Context) ([]model.User, error)

	CreateReport(ctx context.Context, in model.ReportInput) (*model.Report, error)
	GetReports(ctx context.Context) ([]model.Report, error)

	// Moderation. actorID must be the support account.
	DismissReport(ctx context.Context, actorID, reportID int64) error
	DeleteAccount(ctx context.Context, actorID, userID int64) error

	CreateReview(ctx context.Context, in model.ReviewInput) (*model.Review, error)
	GetReviews(ctx context.Context, userID int64) ([]model.Review, error)
}
