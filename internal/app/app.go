package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/audiophile/internal/cart"
	"github.com/vladislavdragonenkov/audiophile/internal/checkout"
	healthcheck "github.com/vladislavdragonenkov/audiophile/internal/health"
	"github.com/vladislavdragonenkov/audiophile/internal/metrics"
	"github.com/vladislavdragonenkov/audiophile/internal/service/httpapi"
	"github.com/vladislavdragonenkov/audiophile/internal/version"
)

const healthSyncInterval = 5 * time.Second

// Run поднимает витрину: HTTP API, сервер метрик и health-проверок,
// gRPC health. Блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if deps.closeFn == nil {
			return
		}
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	checkoutMetrics := metrics.NewCheckoutMetrics()
	httpMetrics := metrics.NewHTTPMetrics()

	var sessions *cart.Sessions
	sessions = cart.NewSessions(deps.cartStorage, logger.WithField("component", "cart-sessions"),
		func(change cart.Change) {
			checkoutMetrics.RecordCartMutation(string(change.Op))
			checkoutMetrics.SetOpenCarts(sessions.Len())
		},
	)

	checkoutLogger := logger.WithField("component", "checkout")
	checkoutSvc := checkout.NewService(deps.orders, deps.notifier, checkoutLogger,
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithObserver(func(orderID string, from, to checkout.State) {
			checkoutLogger.WithFields(log.Fields{
				"order_id": orderID,
				"from":     from,
				"to":       to,
			}).Debug("submission state changed")
		}),
	)

	apiHandler := httpapi.NewHandler(deps.catalog, sessions, checkoutSvc, deps.orders, logger.WithField("layer", "http"))
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(apiHandler, httpMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	deps.registerChecks(healthHandler)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiLis.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go syncGRPCHealth(syncCtx, healthHandler, healthServer, healthSyncInterval)

	var expirer cart.Expirer
	if e, ok := deps.cartStorage.(cart.Expirer); ok {
		expirer = e
	}
	cleanup := cart.NewCleanupWorker(sessions, expirer,
		cart.WithCleanupLogger(logger.WithField("component", "cart-cleanup")),
		cart.WithCleanupMetrics(checkoutMetrics),
		cart.WithCartTTL(cfg.CartTTL),
	)
	go cleanup.Run(syncCtx)

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	shutdown := func() {
		healthServer.Shutdown()
		shutdownHTTPWithTimeout(apiSrv, logger, cfg.ShutdownTimeout)
		stopGRPC(grpcServer, logger, cfg.ShutdownTimeout)
		shutdownHTTP(metricsSrv, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
		shutdown()
		return err
	}
}

// syncGRPCHealth переносит агрегированный статус проверок в gRPC health.
// degraded считается SERVING: витрина работает без некритичных зависимостей.
func syncGRPCHealth(ctx context.Context, h *healthcheck.Handler, srv *health.Server, interval time.Duration) {
	apply := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if h.Evaluate(ctx).Status == healthcheck.StatusUnhealthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		srv.SetServingStatus("", status)
	}

	apply()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			apply()
		}
	}
}

func stopGRPC(srv *grpc.Server, logger *log.Entry, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	shutdownHTTPWithTimeout(srv, logger, 5*time.Second)
}

func shutdownHTTPWithTimeout(srv *http.Server, logger *log.Entry, timeout time.Duration) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
