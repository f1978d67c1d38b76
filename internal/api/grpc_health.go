package api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// HealthReporter publishes dependency health over the gRPC health protocol.
// Each dependency is a named service; the empty service name is the overall status.
type HealthReporter struct {
	server *health.Server
	checks map[string]HealthChecker
}

// NewGRPCServer builds the gRPC server carrying the health and reflection services.
func NewGRPCServer(checks map[string]HealthChecker) (*grpc.Server, *HealthReporter) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger))

	reporter := &HealthReporter{server: health.NewServer(), checks: checks}
	grpc_health_v1.RegisterHealthServer(s, reporter.server)
	zap.L().Info("gRPC health check service registered")

	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	zap.L().Info("gRPC reflection service registered")

	return s, reporter
}

// Check pings every dependency once and updates the published statuses.
func (h *HealthReporter) Check(ctx context.Context) bool {
	healthy := true
	for name, hc := range h.checks {
		st := grpc_health_v1.HealthCheckResponse_SERVING
		if err := hc.Ping(ctx); err != nil {
			zap.L().Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		h.server.SetServingStatus(name, st)
	}

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", overall)
	return healthy
}

// Run checks dependencies every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval/2)
		h.Check(checkCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING so clients drain before the server stops.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

func unaryLogger(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	zap.L().Debug("grpc_request",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, err
}
