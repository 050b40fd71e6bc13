package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/ogurasousui/business-license-api/internal/adapters/grpc/handler"
	"github.com/ogurasousui/business-license-api/internal/adapters/grpc/licensev1"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"github.com/ogurasousui/business-license-api/internal/platform/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
}

// Options は標準のサーバーオプション (トレース、パニック回復、アクセスログ、レート制限) を返します。
func Options(logger *zap.Logger, limiter *ratelimit.Limiter) []grpc.ServerOption {
	recoveryHandler := recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		logging.FromContext(ctx, logger).Error("recovered from panic", zap.Any("panic", p), zap.Stack("stack"))
		return status.Error(codes.Internal, "internal error")
	})

	return []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryHandler),
			grpclogging.UnaryServerInterceptor(logging.InterceptorLogger(logger), grpclogging.WithLogOnEvents(grpclogging.FinishCall)),
			limiter.UnaryServerInterceptor(),
		),
	}
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築し、LicenseService とヘルスチェックを登録します。
func New(listenAddr string, svc license.UseCase, opts ...grpc.ServerOption) *Server {
	srv := grpc.NewServer(opts...)
	licensev1.RegisterLicenseServiceServer(srv, handler.NewLicenseGrpcHandler(svc))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(licensev1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	reflection.Register(srv)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     healthServer,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は既存のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
