package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/rotrade-sync/internal/config"
)

// NewGRPCServer builds a gRPC server with all provided services registered
func NewGRPCServer(log *slog.Logger, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.ChainStreamInterceptor(streamLogger(log)))

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer boots a gRPC server and serves until ctx is done, then
// stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, log *slog.Logger, registrars ...Registrar) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := NewGRPCServer(log, registrars...)
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	log.Info("starting gRPC server", "addr", addr)
	return grpcServer.Serve(lis)
}

func streamLogger(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		log.Debug("stream opened", "method", info.FullMethod)
		err := handler(srv, ss)
		if err != nil {
			log.Warn("stream closed with error", "method", info.FullMethod, "err", err)
		}
		return err
	}
}
