package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/api/handlers"
	"github.com/adamscao/certledger/internal/api/middleware"
	"github.com/adamscao/certledger/internal/auth"
	"github.com/adamscao/certledger/internal/config"
	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/issuance"
	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/verify"
)

// Deps are the services the HTTP layer routes to
type Deps struct {
	Registry contract.Registry
	Issuance *issuance.Service
	Issuers  *issuers.Service
	Verifier *verify.Service
	Gate     *auth.Gate
	Index    handlers.IssuanceIndex
	Audit    handlers.Auditor
	Signer   common.Address
	Logger   *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server. Every route that signs a transaction
// with the service wallet requires the admin session.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Certificates.MaxFileSize
	// nil trusts no proxy: the client IP is the socket peer
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)))
	}

	// Create handlers
	adminHandler := handlers.NewAdminHandler(deps.Gate, deps.Issuers, deps.Audit, handlers.CookieOptions{
		Name:   cfg.Admin.CookieName,
		Secure: cfg.Admin.SecureCookie,
	}, logger)
	issuerHandler := handlers.NewIssuerHandler(deps.Issuers, logger)
	certHandler := handlers.NewCertHandler(deps.Issuance, deps.Issuers, deps.Registry, deps.Index, handlers.CertOptions{
		QRSize:    cfg.Certificates.QRSize,
		VerifyURL: cfg.VerifyURL,
	}, logger)
	verifyHandler := handlers.NewVerifyHandler(deps.Verifier, deps.Audit, cfg.Certificates.MaxFileSize, logger)
	walletHandler := handlers.NewWalletHandler(deps.Signer, deps.Issuers, logger)

	adminSession := middleware.AdminSession(deps.Gate, cfg.Admin.CookieName)
	uploadLimit := middleware.UploadLimit(cfg.Certificates.MaxFileSize)

	// Admin gate
	router.POST("/admin-login", adminHandler.Login)
	router.POST("/admin-logout", adminHandler.Logout)
	router.GET("/approve-issuers", adminSession, adminHandler.ApprovalPage)

	// Shareable verification link
	router.GET("/verify", verifyHandler.VerifyHash)

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/wallet", walletHandler.GetWallet)

		issuersGroup := v1.Group("/issuers")
		{
			issuersGroup.POST("", adminSession, issuerHandler.Register)
			issuersGroup.GET("/:address/approved", issuerHandler.IsApproved)
			issuersGroup.GET("/:address/certificates", issuerHandler.Certificates)
		}

		v1.POST("/deposit/withdraw", adminSession, issuerHandler.WithdrawDeposit)

		certs := v1.Group("/certificates")
		{
			certs.POST("", adminSession, uploadLimit, certHandler.IssueCertificate)
			certs.GET("/:hash", certHandler.GetCertificate)
			certs.POST("/:hash/revoke", adminSession, certHandler.RevokeCertificate)
			certs.GET("/:hash/qr.png", certHandler.QRCode)
		}

		verifyGroup := v1.Group("/verify")
		{
			verifyGroup.GET("", verifyHandler.VerifyHash)
			verifyGroup.POST("/file", uploadLimit, verifyHandler.VerifyFile)
			verifyGroup.POST("/qr", uploadLimit, verifyHandler.VerifyQR)
		}

		// Admin endpoints (require admin session)
		admin := v1.Group("/admin")
		admin.Use(adminSession)
		{
			admin.GET("/issuers", adminHandler.ApprovalPage)
			admin.POST("/issuers/:address/approve", adminHandler.ApproveIssuer)
			admin.DELETE("/issuers/:address", adminHandler.RemoveIssuer)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}, nil
}

// HTTPServer returns an http.Server bound to the configured listen address
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.config.Server.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
