package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// Server wraps the gRPC server and the dictation service
type Server struct {
	grpcServer *grpc.Server
	config     Config
	logger     zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Host string
	Port int
}

// Addr returns host:port
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// NewServer creates a gRPC server exposing session
func NewServer(cfg Config, session Session, logger zerolog.Logger, opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		config:     cfg,
		logger:     logger.With().Str("component", "grpc").Logger(),
	}

	RegisterDictationServer(s.grpcServer, NewDictationService(session, logger))
	return s
}

// Start listens on the configured address and serves until Stop
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
