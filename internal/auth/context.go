package auth

import (
	"context"

	"github.com/fekuna/pantry-service/pkg/middleware"
	"google.golang.org/grpc/metadata"
)

// GetUserID returns the caller's user id, preferring the value placed by the interceptor.
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(middleware.UserIDKey).(string); ok {
		return val
	}
	return fromMetadata(ctx, middleware.UserIDHeader)
}

// GetClientID returns the device/client id the caller syncs from.
func GetClientID(ctx context.Context) string {
	if val, ok := ctx.Value(middleware.ClientIDKey).(string); ok {
		return val
	}
	return fromMetadata(ctx, middleware.ClientIDHeader)
}

func fromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(key); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
