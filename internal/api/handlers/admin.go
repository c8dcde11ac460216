package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/auth"
	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/pkg/ethutil"
)

const (
	approvalPath      = "/approve-issuers"
	approvalErrorPath = "/approve-issuers?error=1"
	adminActor        = "admin"
)

// Auditor writes audit entries
type Auditor interface {
	Create(log *models.AuditLog) error
}

// CookieOptions configures the admin session cookie
type CookieOptions struct {
	Name   string
	Secure bool
}

// AdminHandler handles the admin gate and issuer approval
type AdminHandler struct {
	gate    *auth.Gate
	issuers *issuers.Service
	audit   Auditor
	cookie  CookieOptions
	logger  *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(gate *auth.Gate, issuerSvc *issuers.Service, audit Auditor, cookie CookieOptions, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		gate:    gate,
		issuers: issuerSvc,
		audit:   audit,
		cookie:  cookie,
		logger:  logger,
	}
}

// Login checks the admin password and sets the session cookie
// POST /admin-login
func (h *AdminHandler) Login(c *gin.Context) {
	token, err := h.gate.Login(c.PostForm("password"), c.PostForm("totp"))

	entry := &models.AuditLog{
		Timestamp: time.Now(),
		Action:    models.ActionAdminLogin,
		Actor:     adminActor,
		ClientIP:  GetClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   err == nil,
	}
	if err != nil {
		entry.ErrorMsg = err.Error()
	}
	if h.audit != nil {
		if aerr := h.audit.Create(entry); aerr != nil {
			h.logger.Error("Failed to write audit log", zap.Error(aerr))
		}
	}

	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("Admin login rejected", zap.Error(err))
		}
		c.Redirect(http.StatusSeeOther, approvalErrorPath)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.gate.TTL().Seconds()), "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusSeeOther, approvalPath)
}

// Logout clears the session cookie
// POST /admin-logout
func (h *AdminHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusSeeOther, approvalPath)
}

// ApprovalPage lists pending and approved issuers
// GET /approve-issuers
// GET /v1/admin/issuers
func (h *AdminHandler) ApprovalPage(c *gin.Context) {
	listing, err := h.issuers.List(c.Request.Context())
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, listing)
}

// ApproveIssuer approves a pending issuer
// POST /v1/admin/issuers/:address/approve
func (h *AdminHandler) ApproveIssuer(c *gin.Context) {
	addr, err := ethutil.ParseAddress(c.Param("address"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_address", "Invalid issuer address")
		return
	}

	tx, err := h.issuers.Approve(c.Request.Context(), callerFrom(c, adminActor), addr)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, TxResponse{Status: "approved", TxHash: tx.Hex()})
}

// RemoveIssuer removes an issuer
// DELETE /v1/admin/issuers/:address
func (h *AdminHandler) RemoveIssuer(c *gin.Context) {
	addr, err := ethutil.ParseAddress(c.Param("address"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_address", "Invalid issuer address")
		return
	}

	tx, err := h.issuers.Remove(c.Request.Context(), callerFrom(c, adminActor), addr)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, TxResponse{Status: "removed", TxHash: tx.Hex()})
}
