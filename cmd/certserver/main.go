package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/api"
	"github.com/adamscao/certledger/internal/app"
	"github.com/adamscao/certledger/internal/config"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/certledger/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("certledger server\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting certledger server",
		zap.String("version", Version),
		zap.String("commit", Commit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	logger.Info("Opening database", zap.String("path", cfg.Database.Path))
	database, err := app.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// Connect to the registry contract
	chain, err := app.Dial(ctx, cfg, logger.Named("chain"))
	if err != nil {
		return err
	}
	defer chain.Close()

	svcs, err := app.NewServices(cfg, chain.Registry, database, logger)
	if err != nil {
		return err
	}
	if cfg.Admin.Password == "" {
		logger.Warn("ADMIN_PASSWORD is not set; the approval panel is locked")
	}

	// Create HTTP server
	server, err := api.NewServer(cfg, api.Deps{
		Registry: chain.Registry,
		Issuance: svcs.Issuance,
		Issuers:  svcs.Issuers,
		Verifier: svcs.Verifier,
		Gate:     svcs.Gate,
		Index:    svcs.Certs,
		Audit:    svcs.Audit,
		Signer:   chain.Wallet.Address,
		Logger:   logger.Named("http"),
	})
	if err != nil {
		return err
	}
	httpServer := server.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
