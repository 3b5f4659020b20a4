package repository

import (
	"github.com/oggyb/rotrade-sync/internal/model"
	"github.com/oggyb/rotrade-sync/internal/store"
)

// Repositories bundles every collection of one store. origin tags the
// changes this process publishes.
type Repositories struct {
	Users    *UserRepository
	Listings *ListingRepository
	Messages *MessageRepository
	Reports  *ReportRepository
	Reviews  *ReviewRepository
	Blocks   *BlockRepository
	Prefs    *PrefsRepository
}

func New(s store.Store, origin string) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(s, origin),
		Listings: NewListingRepository(s, origin),
		Messages: NewMessageRepository(s, origin),
		Reports:  NewReportRepository(s, origin),
		Reviews:  NewReviewRepository(s, origin),
		Blocks:   NewBlockRepository(s, origin),
		Prefs:    NewPrefsRepository(s, origin),
	}
}

// ObserveIDs reports the highest id of every entity collection read to
// seen, so ids written by other clients are never handed out again.
func (r *Repositories) ObserveIDs(seen func(int64)) {
	r.Users.col.observeIDs(func(u model.User) int64 { return u.ID }, seen)
	r.Listings.col.observeIDs(func(l model.Listing) int64 { return l.ID }, seen)
	r.Messages.col.observeIDs(func(m model.Message) int64 { return m.ID }, seen)
	r.Reports.col.observeIDs(func(rp model.Report) int64 { return rp.ID }, seen)
	r.Reviews.col.observeIDs(func(rv model.Review) int64 { return rv.ID }, seen)
}
