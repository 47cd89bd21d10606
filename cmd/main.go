package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos_service/config"
	"pos_service/internal/delivery"
	grpcHandler "pos_service/internal/delivery/grpc"
	"pos_service/internal/domain"
	"pos_service/internal/repository"
	"pos_service/internal/session"
	"pos_service/internal/usecase"
	"pos_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// store is what both the Postgres and in-memory backends provide.
type store interface {
	domain.TransactionManager
	Products() domain.ProductRepository
	Categories() domain.CategoryRepository
	Sales() domain.SaleRepository
	Users() domain.UserRepository
	Ping(ctx context.Context) error
}

type sessionStore interface {
	domain.SessionStore
	Ping(ctx context.Context) error
}

func main() {
	logger := setupLogger("info", "text")

	cfg := config.LoadConfig(logger)
	logger = setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting POS Service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	sessions, closeSessions := openSessions(ctx, cfg, logger)
	defer closeSessions()

	productUseCase := usecase.NewProductUseCase(st.Products(), st.Categories(), logger)
	categoryUseCase := usecase.NewCategoryUseCase(st.Categories(), logger)
	checkoutUseCase := usecase.NewCheckoutUseCase(st.Products(), st, logger, usecase.WithCurrencyDecimals(cfg.CurrencyDecimals))
	saleUseCase := usecase.NewSaleUseCase(st.Sales(), logger)
	reportUseCase := usecase.NewReportUseCase(st.Sales(), st.Products(), logger)
	userUseCase := usecase.NewUserUseCase(st.Users(), logger)
	authUseCase := usecase.NewAuthUseCase(st.Users(), sessions, cfg.SessionTTL, logger)

	if cfg.BootstrapAdminUsername != "" {
		if err := userUseCase.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword); err != nil {
			logger.Fatalf("Failed to create bootstrap admin: %v", err)
		}
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := delivery.NewRouter(delivery.Handlers{
		Products:   delivery.NewProductHandler(productUseCase, logger),
		Categories: delivery.NewCategoryHandler(categoryUseCase, logger),
		Sales:      delivery.NewSaleHandler(checkoutUseCase, saleUseCase, logger),
		Users:      delivery.NewUserHandler(userUseCase, logger),
		Auth:       delivery.NewAuthHandler(authUseCase, userUseCase, logger),
		Reports:    delivery.NewReportHandler(reportUseCase, logger),
		Health:     delivery.NewHealthHandler(map[string]delivery.Pinger{"store": st, "sessions": sessions}, logger),
	}, authUseCase, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GrpcPort)
	if err != nil {
		logger.Fatalf("Failed to listen on port %s: %v", cfg.GrpcPort, err)
	}
	grpcServer := grpcHandler.NewHealthServer(logger, st, sessions)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP server listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		grpcServer.Watch(gctx, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Warn("Shutdown signal received...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		grpcServer.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("HTTP server forced to shutdown: %v", err)
			return err
		}
		logger.Info("HTTP server gracefully stopped.")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("POS Service stopped with error: %v", err)
		return
	}
	logger.Info("POS Service shut down gracefully.")
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	logger.SetOutput(os.Stdout)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", level, err)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(logger), func() {}
	}

	logger.Info("Connecting to database...")
	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established successfully.")

	if cfg.DBMigrate {
		if err := db.Migrate(ctx, conn); err != nil {
			conn.Close()
			logger.Fatalf("Failed to apply database schema: %v", err)
		}
		logger.Info("Database schema is up to date.")
	}

	return repository.NewPostgresStore(conn, logger), func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Error closing database connection: %v", err)
		} else {
			logger.Info("Database connection closed.")
		}
	}
}

func openSessions(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (sessionStore, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("Sessions stored in memory")
		return session.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	logger.Infof("Connected to Redis at %s", cfg.RedisAddr)

	return session.NewRedisStore(client, logger), func() {
		if err := client.Close(); err != nil {
			logger.Errorf("Error closing Redis client: %v", err)
		}
	}
}
