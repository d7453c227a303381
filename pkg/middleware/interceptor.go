package middleware

import (
	"context"
	"time"

	"github.com/fekuna/pantry-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	ClientIDKey contextKey = "client_id"
)

const (
	UserIDHeader   = "x-user-id"
	ClientIDHeader = "x-client-id"
)

// ContextInterceptor lifts caller identity headers into the request context.
// Identity is asserted by the upstream gateway; nothing here verifies it.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if val := md.Get(UserIDHeader); len(val) > 0 && val[0] != "" {
				ctx = context.WithValue(ctx, UserIDKey, val[0])
			}
			if val := md.Get(ClientIDHeader); len(val) > 0 && val[0] != "" {
				ctx = context.WithValue(ctx, ClientIDKey, val[0])
			}
		}
		return handler(ctx, req)
	}
}

func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			log.Warn("grpc request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("grpc request", fields...)
		}
		return resp, err
	}
}
