package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// MetadataCarrier reads the secret from incoming gRPC metadata and returns
// new secrets in the response header.
type MetadataCarrier struct {
	ctx context.Context
}

func NewMetadataCarrier(ctx context.Context) *MetadataCarrier {
	return &MetadataCarrier{ctx: ctx}
}

func (m *MetadataCarrier) Set(raw tokens.RawSecret) error {
	return m.send(raw.Value())
}

func (m *MetadataCarrier) Read() (tokens.RawSecret, bool) {
	md, ok := metadata.FromIncomingContext(m.ctx)
	if !ok {
		return "", false
	}
	values := md.Get(common.RefreshTokenCarrierName)
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	return tokens.RawSecret(values[0]), true
}

// Clear sends an empty value, which clients treat as "forget the secret".
func (m *MetadataCarrier) Clear() error {
	return m.send("")
}

func (m *MetadataCarrier) send(value string) error {
	if err := grpc.SetHeader(m.ctx, metadata.Pairs(common.RefreshTokenCarrierName, value)); err != nil {
		return fmt.Errorf("error setting refresh token header: %w", err)
	}
	return nil
}
