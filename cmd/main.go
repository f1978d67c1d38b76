package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"catalog-admin-service/internal/api"
	"catalog-admin-service/internal/cart"
	"catalog-admin-service/internal/config"
	"catalog-admin-service/internal/drafts"
	"catalog-admin-service/internal/kv"
	"catalog-admin-service/internal/logger"
	"catalog-admin-service/internal/media"
	"catalog-admin-service/internal/remote"
	"catalog-admin-service/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run() error {
	zlog, err := logger.Initialize(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// --- Catalogue Backend ---
	backend, closeBackend, health, err := setupBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	// --- Redis: drafts and carts ---
	redisClient, err := kv.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zap.L().Warn("error closing redis client", zap.Error(err))
		}
	}()
	health["redis"] = api.HealthCheckFunc(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	carts := cart.NewStore()
	cartPersister := cart.NewRedisPersister(redisClient, cfg.Redis.CartTTL)
	unsubscribe := carts.Subscribe(cartPersister.Listener())
	defer unsubscribe()

	// --- HTTP ---
	var limiter *api.RateLimiter
	if cfg.HttpServer.StorefrontRatePerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.HttpServer.StorefrontRatePerMinute, cfg.HttpServer.StorefrontRateBurst, 5*time.Minute)
	}
	httpAPIHandler := api.NewHTTPHandler(api.Dependencies{
		Backend:           backend,
		Drafts:            drafts.NewRedisStore(redisClient, cfg.Redis.DraftTTL),
		Carts:             carts,
		CartLoader:        cartPersister,
		Health:            health,
		AdminSecret:       []byte(cfg.Auth.JWTSecret),
		MaxImageDimension: cfg.Media.MaxDimension,
		MaxUploadBytes:    cfg.HttpServer.MaxUploadBytes,
		StorefrontLimiter: limiter,
	})

	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, zlog, cfg.HttpServer.RequestTimeout)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	serveErr := make(chan error, 2)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	// --- gRPC health ---
	grpcServer, reporter := api.NewGRPCServer(health)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on port %s: %w", cfg.GrpcServer.Port, err)
	}
	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go reporter.Run(healthCtx, cfg.GrpcServer.HealthCheckInterval)

	go func() {
		zap.L().Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// --- Graceful Shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		zap.L().Info("received signal, starting graceful shutdown", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		zap.L().Error("server failed, shutting down", zap.Error(runErr))
	}

	stopHealth()
	reporter.Shutdown()
	shutdown(httpServer, grpcServer)
	return runErr
}

// setupBackend builds the catalogue backend for the configured mode. The returned
// health map holds the backend's check and is extended by the caller.
func setupBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), map[string]api.HealthChecker, error) {
	health := map[string]api.HealthChecker{}

	if cfg.Backend.Mode == config.BackendREST {
		client := remote.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout)
		health["backend"] = api.HealthCheckFunc(func(ctx context.Context) error {
			_, err := client.ListPlatforms(ctx)
			return err
		})
		zap.L().Info("using REST catalogue backend", zap.String("base_url", cfg.Backend.BaseURL))
		return client, func() {}, health, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	zap.L().Info("database connection established")

	var objects store.ObjectStore
	if cfg.Media.Bucket != "" {
		s3cfg := media.S3Config{
			Region:          cfg.Media.Region,
			Endpoint:        cfg.Media.Endpoint,
			AccessKeyID:     cfg.Media.AccessKeyID,
			SecretAccessKey: cfg.Media.SecretAccessKey,
			Bucket:          cfg.Media.Bucket,
			Prefix:          cfg.Media.Prefix,
		}
		s3Client, err := media.NewS3Client(ctx, s3cfg)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		objects = media.NewUploader(s3Client, s3cfg)
		zap.L().Info("media uploads enabled", zap.String("bucket", cfg.Media.Bucket))
	} else {
		zap.L().Warn("AWS_S3_BUCKET not set, media uploads disabled")
	}

	dbStore := store.NewPostgresStore(db, objects)
	health["backend"] = dbStore
	closeStore := func() {
		if err := dbStore.Close(); err != nil {
			zap.L().Warn("error closing database connection", zap.Error(err))
		}
	}
	return dbStore, closeStore, health, nil
}

func setupBaseMiddleware(router *chi.Mux, zlog *zap.Logger, timeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.RequestLogger(zlog))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(timeout))
}

func shutdown(httpServer *http.Server, grpcServer *grpc.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		zap.L().Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		zap.L().Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		zap.L().Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}
}
