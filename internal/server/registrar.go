package server

import "google.golang.org/grpc"

// Registrar attaches one service (e.g. the change feed) to the gRPC server
type Registrar interface {
	Register(s *grpc.Server)
}
