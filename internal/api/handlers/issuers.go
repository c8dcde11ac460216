package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/pkg/ethutil"
)

// IssuerHandler handles issuer registration and issuer queries
type IssuerHandler struct {
	issuers *issuers.Service
	logger  *zap.Logger
}

// NewIssuerHandler creates a new issuer handler
func NewIssuerHandler(issuerSvc *issuers.Service, logger *zap.Logger) *IssuerHandler {
	return &IssuerHandler{
		issuers: issuerSvc,
		logger:  logger,
	}
}

// RegisterIssuerRequest represents an issuer registration request
type RegisterIssuerRequest struct {
	Name        string `json:"name" form:"name"`
	Institution string `json:"institution" form:"institution"`
	// Deposit in ether; the configured minimum when empty
	Deposit string `json:"deposit" form:"deposit"`
}

// ApprovalResponse reports an issuer's approval state
type ApprovalResponse struct {
	Address  string `json:"address"`
	Approved bool   `json:"approved"`
}

// CertificatesResponse lists an issuer's certificates
type CertificatesResponse struct {
	Issuer       string                `json:"issuer"`
	Certificates []*models.Certificate `json:"certificates"`
}

// Register registers the service wallet as an issuer
// POST /v1/issuers
func (h *IssuerHandler) Register(c *gin.Context) {
	var req RegisterIssuerRequest
	if err := c.ShouldBind(&req); err != nil {
		RespondErrorWithDetails(c, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return
	}

	tx, err := h.issuers.Register(c.Request.Context(), callerFrom(c, ""), req.Name, req.Institution, req.Deposit)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, TxResponse{Status: "registered", TxHash: tx.Hex()})
}

// IsApproved reports whether an address is an approved issuer
// GET /v1/issuers/:address/approved
func (h *IssuerHandler) IsApproved(c *gin.Context) {
	addr, err := ethutil.ParseAddress(c.Param("address"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_address", "Invalid issuer address")
		return
	}

	ok, err := h.issuers.IsApproved(c.Request.Context(), addr)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, ApprovalResponse{Address: addr.Hex(), Approved: ok})
}

// Certificates lists the certificates issued by an address
// GET /v1/issuers/:address/certificates
func (h *IssuerHandler) Certificates(c *gin.Context) {
	addr, err := ethutil.ParseAddress(c.Param("address"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_address", "Invalid issuer address")
		return
	}

	certs, err := h.issuers.Certificates(c.Request.Context(), addr)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, CertificatesResponse{Issuer: addr.Hex(), Certificates: certs})
}

// WithdrawDeposit withdraws the service wallet's deposit
// POST /v1/deposit/withdraw
func (h *IssuerHandler) WithdrawDeposit(c *gin.Context) {
	tx, err := h.issuers.WithdrawDeposit(c.Request.Context(), callerFrom(c, ""))
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, TxResponse{Status: "withdrawn", TxHash: tx.Hex()})
}
