package bridge

import (
	"slices"
	"time"

	"github.com/oggyb/rotrade-sync/internal/model"
)

// View is what a client renders.
type View struct {
	Listings     []model.Listing
	Chats        []model.Chat
	ChatWith     int64
	Conversation []model.Message
	Reviews      []model.Review
	Rating       model.Rating
	Reports      []model.Report // support only
	UpdatedAt    time.Time
}

func (v View) clone() View {
	v.Listings = slices.Clone(v.Listings)
	v.Chats = slices.Clone(v.Chats)
	v.Conversation = slices.Clone(v.Conversation)
	v.Reviews = slices.Clone(v.Reviews)
	v.Reports = slices.Clone(v.Reports)
	return v
}

// Event tells observers which concern was refreshed. NewMessages is set
// on ConcernMessages events.
type Event struct {
	Concern     Concern
	View        View
	NewMessages []model.Message
}
