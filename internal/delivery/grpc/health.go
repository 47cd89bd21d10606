// Package grpc exposes the standard gRPC health service for the POS backend.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name reported for the POS service.
const ServiceName = "pos.PointOfSale"

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	server *grpc.Server
	health *health.Server
	checks []Pinger
	log    *logrus.Logger
}

func NewHealthServer(logger *logrus.Logger, checks ...Pinger) *HealthServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()

	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	logger.Info("gRPC health and reflection services registered")

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server: grpcServer,
		health: healthServer,
		checks: checks,
		log:    logger,
	}
}

// Serve blocks until the listener fails or Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	s.log.Infof("gRPC server listening on %s", lis.Addr())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	s.log.Info("gRPC server stopped serving.")
	return nil
}

// Watch re-probes the dependencies every interval and flips the serving status
// when one goes down or comes back. It returns when ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *HealthServer) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for _, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			s.log.Warnf("gRPC health: dependency check failed: %v", err)
			s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Stop marks the service NOT_SERVING and drains in-flight RPCs.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
	s.log.Info("gRPC server gracefully stopped.")
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
