package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thraizz/tcg-match-server/internal/config"
	"github.com/thraizz/tcg-match-server/internal/game"
	"github.com/thraizz/tcg-match-server/internal/repository"
	"github.com/thraizz/tcg-match-server/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting match server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	catalog, err := game.LoadCatalog(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Fatal("failed to load card catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	if _, ok := catalog.Deck(cfg.Catalog.DefaultDeck); !ok {
		logger.Fatal("default deck missing from catalog", zap.String("deck", cfg.Catalog.DefaultDeck))
	}
	logger.Info("card catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Strings("decks", catalog.DeckIDs()),
	)

	archive, err := repository.Open(ctx, cfg.Archive, logger)
	if err != nil {
		logger.Fatal("failed to open match archive", zap.Error(err))
	}
	defer archive.Close()

	registry := game.NewRegistry(catalog, game.RegistryConfig{
		GracePeriod:    cfg.Match.GracePeriod,
		AIThinkDelay:   cfg.Match.AIThinkDelay,
		LogLimit:       cfg.Match.LogLimit,
		Seed:           cfg.Match.Seed,
		DefaultDeck:    cfg.Catalog.DefaultDeck,
		ReplayFrames:   cfg.Match.ReplayFrames,
		ArchiveTimeout: cfg.Archive.Timeout,
	}, archive, game.RealClock(), logger)
	logger.Info("match registry initialized",
		zap.Duration("grace_period", cfg.Match.GracePeriod),
		zap.Duration("ai_think_delay", cfg.Match.AIThinkDelay),
	)

	httpServer := server.NewHTTPServer(cfg.Server.HTTP, registry, catalog, archive, logger)
	go func() {
		if httpErr := httpServer.Start(); httpErr != nil {
			logger.Error("HTTP server error", zap.Error(httpErr))
		}
	}()

	health := server.NewHealthReporter(registry, logger)
	go health.Run(ctx, time.Minute)

	grpcServer := server.NewGRPCServer(cfg.Server.GRPC, health.Server(), logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	logger.Info("match server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("archive_driver", cfg.Archive.Driver),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	health.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logger.Info("match server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
