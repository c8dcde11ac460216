package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/app"
	"github.com/adamscao/certledger/internal/config"
	"github.com/adamscao/certledger/internal/db"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "certadmin",
	Short: "certledger administration tool",
	Long:  "Administrative tool for verifying certificates, managing issuers and reading the local issuance and audit records",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithEnv(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// keep stdout for command output
		cfg.Logging.Format = "text"
		logger, err = app.NewLogger(cfg)
		if err != nil {
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/certledger/config.yaml", "Config file path")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(issuersCmd)
	rootCmd.AddCommand(certsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(totpCmd)
	rootCmd.AddCommand(qrCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func initDB() (*db.DB, error) {
	return app.OpenDatabase(cfg)
}

// session is a connected registry plus the services over it
type session struct {
	chain    *app.Chain
	database *db.DB
	svcs     *app.Services
}

func openSession(ctx context.Context) (*session, error) {
	database, err := initDB()
	if err != nil {
		return nil, err
	}

	chain, err := app.Dial(ctx, cfg, logger.Named("chain"))
	if err != nil {
		database.Close()
		return nil, err
	}

	svcs, err := app.NewServices(cfg, chain.Registry, database, logger)
	if err != nil {
		chain.Close()
		database.Close()
		return nil, err
	}

	return &session{chain: chain, database: database, svcs: svcs}, nil
}

func (s *session) Close() {
	s.chain.Close()
	s.database.Close()
}
