// Package app wires configuration into the chain connection and services
// shared by the server and the admin tool.
package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/auth"
	"github.com/adamscao/certledger/internal/certhash"
	"github.com/adamscao/certledger/internal/config"
	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/db"
	"github.com/adamscao/certledger/internal/db/repository"
	"github.com/adamscao/certledger/internal/issuance"
	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/logging"
	"github.com/adamscao/certledger/internal/pinning"
	"github.com/adamscao/certledger/internal/verify"
	"github.com/adamscao/certledger/internal/wallet"
)

// Chain is a connected, signing registry client
type Chain struct {
	Client   *ethclient.Client
	Wallet   *wallet.Wallet
	ChainID  *big.Int
	Registry *contract.EthRegistry
}

// Dial connects to the RPC endpoint, loads the wallet and binds the registry
func Dial(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Chain, error) {
	w, err := wallet.LoadOrGenerate(cfg.Wallet.PrivateKeyPath, cfg.Wallet.AddressPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	logger.Info("Wallet loaded", zap.String("address", w.Address.Hex()))

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPCURL, err)
	}

	chainID := big.NewInt(cfg.Chain.ChainID)
	if cfg.Chain.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
	}

	parsed, err := contract.LoadABI(cfg.Chain.ABIPath)
	if err != nil {
		client.Close()
		return nil, err
	}

	opts, err := w.Transactor(chainID)
	if err != nil {
		client.Close()
		return nil, err
	}

	address := common.HexToAddress(cfg.Chain.ContractAddress)
	registry := contract.NewEthRegistry(address, parsed, client, opts, cfg.TxTimeout(), logger)

	logger.Info("Registry bound",
		zap.String("contract", address.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.String("rpc_url", cfg.Chain.RPCURL),
	)

	return &Chain{
		Client:   client,
		Wallet:   w,
		ChainID:  chainID,
		Registry: registry,
	}, nil
}

// Close closes the RPC connection
func (c *Chain) Close() {
	c.Client.Close()
}

// Services are the domain services built on one registry and database
type Services struct {
	Certs    *repository.CertRepository
	Audit    *repository.AuditRepository
	Pinner   *pinning.Client
	Issuance *issuance.Service
	Issuers  *issuers.Service
	Verifier *verify.Service
	Gate     *auth.Gate
}

// NewServices builds the services over registry and database
func NewServices(cfg *config.Config, registry contract.Registry, database *db.DB, logger *zap.Logger) (*Services, error) {
	certRepo := repository.NewCertRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	pinner := pinning.NewClient(pinning.Options{
		APIURL:       cfg.Pinning.APIURL,
		GatewayURL:   cfg.Pinning.GatewayURL,
		JWT:          cfg.Pinning.JWT,
		APIKey:       cfg.Pinning.APIKey,
		SecretAPIKey: cfg.Pinning.SecretAPIKey,
		RetryMax:     cfg.Pinning.RetryMax,
		Timeout:      cfg.PinningTimeout(),
		Logger:       logger.Named("pinning"),
	})

	deriver, err := certhash.NewDeriver(cfg.Certificates.HashMode)
	if err != nil {
		return nil, err
	}

	return &Services{
		Certs:  certRepo,
		Audit:  auditRepo,
		Pinner: pinner,
		Issuance: issuance.NewService(registry, pinner, deriver, certRepo, auditRepo, issuance.Options{
			MaxFileSize: cfg.Certificates.MaxFileSize,
			PinMetadata: cfg.Certificates.PinMetadata,
			VerifyURL:   cfg.VerifyURL,
		}, logger.Named("issuance")),
		Issuers: issuers.NewService(registry, auditRepo, cfg.Certificates.MinDeposit,
			cfg.Certificates.MaxConcurrentReads, logger.Named("issuers")),
		Verifier: verify.NewService(registry, pinner, certRepo, logger.Named("verify")),
		Gate:     auth.NewGate(cfg.Admin.Password, cfg.Admin.TOTPSecret, cfg.SessionTTL()),
	}, nil
}

// OpenDatabase opens the database and applies migrations
func OpenDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// NewLogger builds the configured logger
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}
