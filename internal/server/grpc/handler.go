package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Refresh rotates the presented refresh secret. The new secret is sent in
// the response header; the body carries the new access token.
func (s *GRPCServer) Refresh(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	carrier := session.NewMetadataCarrier(ctx)
	raw, ok := carrier.Read()
	if !ok {
		return nil, s.toStatus(ctx, common.ErrInvalidRefreshToken)
	}

	pair, err := s.auth.Refresh(ctx, raw)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := carrier.Set(pair.RefreshToken); err != nil {
		s.logger.Error(ctx, "error sending refresh token", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return wrapperspb.String(pair.AccessToken), nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	carrier := session.NewMetadataCarrier(ctx)
	raw, _ := carrier.Read()
	if err := s.auth.Logout(ctx, raw); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := carrier.Clear(); err != nil {
		s.logger.Warn(ctx, "error clearing refresh token", "error", err)
	}
	return &emptypb.Empty{}, nil
}

// WhoAmI echoes the verified access token claims.
func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidAccessToken.Error())
	}

	authorities := make([]any, 0, len(claims.Authorities))
	for _, r := range claims.Authorities {
		authorities = append(authorities, string(r))
	}
	out, err := structpb.NewStruct(map[string]any{
		"subject":     claims.Subject,
		"authorities": authorities,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidRefreshToken.Error())
	case errors.Is(err, common.ErrInvalidAccessToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidAccessToken.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.NotFound, common.ErrUserNotFound.Error())
	case errors.Is(err, common.ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, common.ErrUserAlreadyExists.Error())
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
