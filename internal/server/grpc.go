package server

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// MatchService is the health service name reporting match registry status.
const MatchService = "tcg.MatchRegistry"

// NewGRPCServer builds the admin gRPC server with the health service
// registered.
func NewGRPCServer(cfg config.GRPCConfig, healthSrv *health.Server, logger *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)),
	)
	healthpb.RegisterHealthServer(srv, healthSrv)
	return srv
}

// HealthReporter keeps the health service in step with the registry.
type HealthReporter struct {
	health   *health.Server
	registry *game.Registry
	logger   *zap.Logger
}

func NewHealthReporter(registry *game.Registry, logger *zap.Logger) *HealthReporter {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(MatchService, healthpb.HealthCheckResponse_SERVING)
	return &HealthReporter{health: hs, registry: registry, logger: logger}
}

// Server returns the health service implementation.
func (h *HealthReporter) Server() *health.Server { return h.health }

// Run logs registry stats every interval until ctx is done, then marks
// every service NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			rooms, active := h.registry.Stats()
			h.logger.Debug("registry stats",
				zap.Int("rooms", rooms),
				zap.Int("active_matches", active),
			)
		}
	}
}

// Shutdown reports NOT_SERVING so load balancers drain before stop.
func (h *HealthReporter) Shutdown() {
	h.health.Shutdown()
}

// ChainUnaryInterceptors composes interceptors, outermost first.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			next := chained
			ic := interceptors[i]
			chained = func(ctx context.Context, req interface{}) (interface{}, error) {
				return ic(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// RecoveryInterceptor turns handler panics into Internal errors.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.String("panic", fmt.Sprint(r)),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs each call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}
