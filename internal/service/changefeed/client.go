package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/oggyb/rotrade-sync/internal/store"
)

// Client subscribes to a remote change feed. It satisfies store.Subscriber,
// so a bridge can use it in place of a local store.
type Client struct {
	conn grpc.ClientConnInterface
	keys []string
	log  *slog.Logger
}

var _ store.Subscriber = (*Client)(nil)

func NewClient(conn grpc.ClientConnInterface, log *slog.Logger, keys ...string) *Client {
	return &Client{conn: conn, keys: keys, log: log.With("sub", "changefeed_client")}
}

// Dial connects to a feed at addr without transport security.
func Dial(addr string, log *slog.Logger, keys ...string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial change feed %s: %w", addr, err)
	}
	return NewClient(conn, log, keys...), conn, nil
}

// Subscribe opens a Watch stream and returns once the server has
// confirmed the subscription.
func (c *Client) Subscribe(ctx context.Context) (store.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], watchMethod, grpc.CallContentSubtype(CodecName))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open watch stream: %w", err)
	}
	if err := stream.SendMsg(&WatchRequest{Keys: c.keys}); err != nil {
		cancel()
		return nil, fmt.Errorf("send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, err
	}
	if _, err := stream.Header(); err != nil {
		cancel()
		return nil, fmt.Errorf("watch handshake: %w", err)
	}

	sub := &feedSubscription{ch: make(chan store.Change, 64), cancel: cancel}
	go c.recv(ctx, stream, sub.ch)
	return sub, nil
}

func (c *Client) recv(ctx context.Context, stream grpc.ClientStream, ch chan<- store.Change) {
	defer close(ch)
	for {
		var change store.Change
		if err := stream.RecvMsg(&change); err != nil {
			if !errors.Is(err, context.Canceled) && status.Code(err) != codes.Canceled {
				c.log.Warn("change feed ended", "err", err)
			}
			return
		}
		select {
		case ch <- change:
		case <-ctx.Done():
			return
		}
	}
}

type feedSubscription struct {
	ch     chan store.Change
	cancel context.CancelFunc
}

func (s *feedSubscription) Changes() <-chan store.Change { return s.ch }

func (s *feedSubscription) Close() error {
	s.cancel()
	return nil
}
