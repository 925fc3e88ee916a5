package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gRPC "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pixbank/golang_services/internal/ledger_service/adapters/cache"
	"github.com/pixbank/golang_services/internal/ledger_service/adapters/events"
	"github.com/pixbank/golang_services/internal/ledger_service/adapters/pixgateway"
	"github.com/pixbank/golang_services/internal/ledger_service/app"
	ledgerpg "github.com/pixbank/golang_services/internal/ledger_service/repository/postgres"
	platformcache "github.com/pixbank/golang_services/internal/platform/cache"
	"github.com/pixbank/golang_services/internal/platform/config"
	"github.com/pixbank/golang_services/internal/platform/database"
	"github.com/pixbank/golang_services/internal/platform/logger"
	"github.com/pixbank/golang_services/internal/platform/messagebroker"
	httptransport "github.com/pixbank/golang_services/internal/public_api_service/transport/http"
	userapp "github.com/pixbank/golang_services/internal/user_service/app"
	userpg "github.com/pixbank/golang_services/internal/user_service/repository/postgres"
)

const (
	serviceName      = "bank-service"
	auditQueue       = "bank_audit_workers"
	shutdownTimeout  = 15 * time.Second
	mockApproveAfter = 20 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Bank service starting...",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"metrics_port", cfg.MetricsPort,
		"log_level", cfg.LogLevel,
	)

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLogger.Warn("Unknown timezone, falling back to local time", "timezone", cfg.Timezone, "error", err)
		location = time.Local
	}

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Events and the stats cache are optional; the ledger stays correct without them.
	var (
		ledgerEvents app.EventPublisher
		userEvents   userapp.EventPublisher
		natsClient   *messagebroker.NatsClient
	)
	natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Warn("Failed to connect to NATS, domain events disabled", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		publisher := events.NewNatsEventPublisher(natsClient, appLogger)
		ledgerEvents = publisher
		userEvents = publisher
	}

	var statsCache app.StatsCache
	redisClient, err := platformcache.NewRedisClient(mainCtx, cfg.RedisURL, appLogger)
	if err != nil {
		appLogger.Warn("Failed to connect to Redis, admin stats cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		statsCache = cache.NewRedisStatsCache(redisClient)
	}

	var gateway app.PixGateway
	if cfg.PixGatewayMock {
		appLogger.Warn("Using mock PIX gateway, charges approve automatically", "approve_after", mockApproveAfter.String())
		gateway = pixgateway.NewMockGateway(appLogger, mockApproveAfter)
	} else {
		gateway = pixgateway.NewCredPixGateway(appLogger, cfg.PixGatewayBaseURL, cfg.PixGatewayToken,
			time.Duration(cfg.PixGatewayTimeoutSeconds)*time.Second, nil)
	}

	repos := app.Repositories{
		Accounts:     ledgerpg.NewPgAccountRepository(appLogger),
		Transactions: ledgerpg.NewPgTransactionRepository(appLogger),
		Withdrawals:  ledgerpg.NewPgWithdrawalRepository(appLogger),
		PixPayments:  ledgerpg.NewPgPixPaymentRepository(appLogger),
		ActivityLogs: ledgerpg.NewPgActivityLogRepository(appLogger),
		Stats:        ledgerpg.NewPgStatsRepository(appLogger),
	}
	balances := app.NewBalanceManager(repos.Accounts, appLogger)
	pixService := app.NewPixService(dbPool, repos, balances, gateway, ledgerEvents, appLogger)
	withdrawalService := app.NewWithdrawalService(dbPool, repos, balances, ledgerEvents, appLogger)
	adminService := app.NewAdminService(dbPool, repos, statsCache,
		time.Duration(cfg.StatsCacheTTLSeconds)*time.Second, location, appLogger)
	statementService := app.NewStatementService(dbPool, repos, appLogger)
	authService := userapp.NewAuthService(dbPool, userpg.NewPgUserRepository(), repos.ActivityLogs, userEvents,
		userapp.AuthConfig{JWTSecret: cfg.JWTSecret, JWTExpiryHours: cfg.JWTExpiryHours}, appLogger)

	validate := validator.New()
	router := httptransport.NewRouter(httptransport.Handlers{
		Auth:   httptransport.NewAuthHandler(authService, appLogger, validate),
		Ledger: httptransport.NewLedgerHandler(pixService, withdrawalService, statementService, appLogger, validate),
		Admin:  httptransport.NewAdminHandler(adminService, withdrawalService, appLogger, validate),
	}, authService, appLogger)

	g, groupCtx := errgroup.WithContext(mainCtx)

	// --- gRPC health server ---
	grpcMetrics := grpcprom.NewServerMetrics(grpcprom.WithServerHandlingTimeHistogram())
	if err := prometheus.DefaultRegisterer.Register(grpcMetrics); err != nil {
		appLogger.Warn("Failed to register gRPC Prometheus metrics", "error", err)
	}
	grpcServer := gRPC.NewServer(
		gRPC.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		gRPC.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		appLogger.Error("Failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	g.Go(func() error {
		appLogger.Info("gRPC health server starting", "address", grpcListener.Addr().String())
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, gRPC.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	// --- Public HTTP API ---
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	g.Go(func() error {
		appLogger.Info("HTTP API server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metricsMux}
	g.Go(func() error {
		appLogger.Info("Metrics HTTP server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics serve: %w", err)
		}
		return nil
	})

	// --- Workers ---
	sweepInterval := time.Duration(cfg.PixExpirySweepIntervalSeconds) * time.Second
	if sweepInterval > 0 {
		sweeper := app.NewExpirySweeper(pixService, sweepInterval, appLogger)
		g.Go(func() error { return sweeper.Run(groupCtx) })
	}
	if natsClient != nil {
		audit := events.NewAuditSubscriber(natsClient, auditQueue, appLogger)
		if err := audit.Start(groupCtx); err != nil {
			appLogger.Error("Failed to start audit subscriber", "error", err)
		}
	}

	// --- Graceful shutdown ---
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
		case <-groupCtx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of servers...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErrors error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("http shutdown: %w", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("metrics shutdown: %w", err))
		}
		grpcServer.GracefulStop()
		return shutdownErrors
	})

	appLogger.Info("Bank service is ready and running.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service group encountered an error during run/shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Bank service shut down successfully.")
}
