package marketplace

import (
	"github.com/oggyb/rotrade-sync/internal/api"
	"github.com/oggyb/rotrade-sync/internal/app"
	"github.com/oggyb/rotrade-sync/internal/repository"
)

// Service is the store-backed implementation of the marketplace rules.
//
// Every mutation reads the whole affected collection, applies the change
// and writes it back with compare-and-swap; the repository publishes a
// change tagged with the collection key afterwards. Operations whose target
// (user, listing) is missing return a nil record and a nil error.
type Service struct {
	appCtx *app.AppContext
	repos  *repository.Repositories
}

var _ api.API = (*Service)(nil)

// NewService creates the service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repos:  appCtx.Repos,
	}
}

// SupportUsername is the reserved moderation account.
func (s *Service) SupportUsername() string {
	return s.appCtx.Config.App.SupportUsername
}

func (s *Service) isSupport(username string) bool {
	return username != "" && username == s.SupportUsername()
}
