// Package grpc serves the token renewal flows over gRPC. The refresh secret
// travels in the refresh_token metadata entry and the access token in
// authorization: Bearer metadata.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"google.golang.org/grpc"
)

// AuthService is the part of services.AuthService used over gRPC.
type AuthService interface {
	Refresh(ctx context.Context, raw tokens.RawSecret) (*services.TokenPair, error)
	Logout(ctx context.Context, raw tokens.RawSecret) error
}

// ClaimsExtractor verifies bearer tokens.
type ClaimsExtractor interface {
	ExtractClaims(token string) (*auth.Claims, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	claims  ClaimsExtractor
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AuthService, c ClaimsExtractor) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
		claims:  c,
	}
}

// newServer builds the grpc.Server with interceptors and the service
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterTokensServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
