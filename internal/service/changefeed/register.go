package changefeed

import (
	"google.golang.org/grpc"

	"github.com/oggyb/rotrade-sync/internal/app"
)

// Registrar ties the change feed into the gRPC server.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches a feed over the application store.
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewService(r.appCtx.Store, r.appCtx.Logger))
}
