// Package changefeed streams store changes to remote sessions over gRPC,
// so they can refresh on push instead of waiting for their next poll.
package changefeed

import (
	"log/slog"
	"slices"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/store"
)

const (
	ServiceName = "marketplace.sync.v1.ChangeFeed"
	watchMethod = "/" + ServiceName + "/Watch"
)

// WatchRequest narrows the feed to the given keys. Empty means all keys.
type WatchRequest struct {
	Keys []string `json:"keys,omitempty"`
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*store.Change) error
	grpc.ServerStream
}

// ChangeFeedServer is the service implementation contract.
type ChangeFeedServer interface {
	Watch(*WatchRequest, WatchServer) error
}

// ServiceDesc describes the feed for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChangeFeedServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "changefeed/v1/changefeed.json",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(WatchRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ChangeFeedServer).Watch(req, &watchServer{stream})
}

type watchServer struct {
	grpc.ServerStream
}

func (w *watchServer) Send(c *store.Change) error { return w.ServerStream.SendMsg(c) }

// Service relays the changes of a store subscription to each watcher.
type Service struct {
	source store.Subscriber
	log    *slog.Logger
}

var _ ChangeFeedServer = (*Service)(nil)

func NewService(source store.Subscriber, log *slog.Logger) *Service {
	return &Service{source: source, log: log.With("sub", "changefeed")}
}

// Watch streams changes until the client goes away.
//
// Behavior:
//   - Subscribes to the store before answering with response headers, so
//     a client that has seen the headers misses nothing.
//   - Drops changes whose key is not in req.Keys (when set).
//   - Returns nil when the client cancels; store failures map to gRPC
//     status codes.
func (s *Service) Watch(req *WatchRequest, stream WatchServer) error {
	ctx := stream.Context()

	sub, err := s.source.Subscribe(ctx)
	if err != nil {
		s.log.Error("Watch: subscribe failed", "err", err)
		return apperr.Map(err)
	}
	defer sub.Close()

	if err := stream.SendHeader(metadata.Pairs("x-feed", "ready")); err != nil {
		return err
	}
	s.log.Debug("watcher connected", "keys", req.Keys)

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("watcher gone")
			return nil
		case c, ok := <-sub.Changes():
			if !ok {
				return apperr.Map(apperr.ErrServiceUnavailable)
			}
			if len(req.Keys) > 0 && !slices.Contains(req.Keys, c.Key) {
				continue
			}
			if err := stream.Send(&c); err != nil {
				return err
			}
		}
	}
}
