package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/db/repository"
	"github.com/adamscao/certledger/internal/issuance"
	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/internal/qrscan"
	"github.com/adamscao/certledger/pkg/ethutil"
)

// IssuanceIndex looks up issuances recorded by this service
type IssuanceIndex interface {
	GetByHash(hash string) (*models.IssuanceRecord, error)
}

// CertOptions configures a CertHandler
type CertOptions struct {
	QRSize    int
	VerifyURL func(hash string) string
}

// CertHandler handles certificate issuance, lookup and revocation
type CertHandler struct {
	issuance *issuance.Service
	issuers  *issuers.Service
	registry contract.Registry
	index    IssuanceIndex
	opts     CertOptions
	logger   *zap.Logger
}

// NewCertHandler creates a new certificate handler
func NewCertHandler(
	issuanceSvc *issuance.Service,
	issuerSvc *issuers.Service,
	registry contract.Registry,
	index IssuanceIndex,
	opts CertOptions,
	logger *zap.Logger,
) *CertHandler {
	return &CertHandler{
		issuance: issuanceSvc,
		issuers:  issuerSvc,
		registry: registry,
		index:    index,
		opts:     opts,
		logger:   logger,
	}
}

// CertificateResponse is the on-chain record with the local issuance entry
type CertificateResponse struct {
	Certificate *models.Certificate    `json:"certificate"`
	Issuance    *models.IssuanceRecord `json:"issuance,omitempty"`
	VerifyURL   string                 `json:"verify_url"`
}

// IssueCertificate pins the uploaded file and issues it on chain
// POST /v1/certificates (multipart: recipient_name, course_name, file)
func (h *CertHandler) IssueCertificate(c *gin.Context) {
	req := &issuance.Request{
		RecipientName: c.PostForm("recipient_name"),
		CourseName:    c.PostForm("course_name"),
		ClientIP:      GetClientIP(c),
		UserAgent:     c.GetHeader("User-Agent"),
	}

	fh, err := c.FormFile("file")
	switch {
	case bodyTooLarge(err):
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
		return
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_file", "Failed to read uploaded file")
			return
		}
		defer f.Close()

		req.File = f
		req.FileName = fh.Filename
		req.FileSize = fh.Size
	}

	res, err := h.issuance.Issue(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// GetCertificate returns a certificate's on-chain record
// GET /v1/certificates/:hash
func (h *CertHandler) GetCertificate(c *gin.Context) {
	hash, err := ethutil.ParseHash(c.Param("hash"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_hash", "Invalid certificate hash")
		return
	}

	cert, err := h.registry.Certificate(c.Request.Context(), hash)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}
	if !cert.Exists() {
		RespondError(c, http.StatusNotFound, "not_found", "Certificate not found")
		return
	}

	resp := CertificateResponse{
		Certificate: cert,
		VerifyURL:   h.opts.VerifyURL(hash.Hex()),
	}

	if h.index != nil {
		rec, err := h.index.GetByHash(hash.Hex())
		switch {
		case err == nil:
			resp.Issuance = rec
		case !errors.Is(err, repository.ErrNotFound):
			h.logger.Warn("Failed to read local issuance", zap.String("hash", hash.Hex()), zap.Error(err))
		}
	}

	RespondSuccess(c, resp)
}

// RevokeCertificate revokes a certificate issued by the service wallet
// POST /v1/certificates/:hash/revoke
func (h *CertHandler) RevokeCertificate(c *gin.Context) {
	hash, err := ethutil.ParseHash(c.Param("hash"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_hash", "Invalid certificate hash")
		return
	}

	tx, err := h.issuers.Revoke(c.Request.Context(), callerFrom(c, ""), hash)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, TxResponse{Status: "revoked", TxHash: tx.Hex()})
}

// QRCode renders the verification link of a certificate as a PNG
// GET /v1/certificates/:hash/qr.png
func (h *CertHandler) QRCode(c *gin.Context) {
	hash, err := ethutil.ParseHash(c.Param("hash"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_hash", "Invalid certificate hash")
		return
	}

	png, err := qrscan.Encode(h.opts.VerifyURL(hash.Hex()), h.opts.QRSize)
	if err != nil {
		h.logger.Error("Failed to render QR code", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to render QR code")
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}
