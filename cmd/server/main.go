package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/wekeepgrowing/medvoa-backend/internal/app"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/http"
	"github.com/wekeepgrowing/medvoa-backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run database migrations
	if cfg.Database.Driver == config.DriverPostgres {
		if err := migrateUp(cfg, zapLogger); err != nil {
			zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	application, err := app.Build(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			zapLogger.Error("Failed to close connections", zap.Error(err))
		}
	}()

	// Initialize servers
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Dependencies{
		Query:        application.Query,
		Entitlements: application.Entitlements,
		Processor:    application.Processor,
		HealthChecks: map[string]httpServer.HealthCheck{
			"redis": application.RedisPing,
		},
	})

	var grpcSrv *grpcServer.Server
	if cfg.Server.GRPC.Port != 0 {
		grpcSrv = grpcServer.NewServer(cfg, zapLogger)
		go func() {
			if err := grpcSrv.Start(); err != nil {
				zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
			}
		}()
		grpcSrv.SetServing(true)
	}

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	zapLogger.Info("Entitlement service started",
		zap.String("environment", cfg.Service.Environment),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled()))

	// Wait for interrupt signal
	<-ctx.Done()
	zapLogger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
		}
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}

func migrateUp(cfg *config.Config, log *zap.Logger) error {
	migrator, err := database.NewMigrator(cfg.Database.URL(), log)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}
