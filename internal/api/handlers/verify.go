package handlers

import (
	"encoding/json"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/internal/verify"
)

// VerifyHandler handles certificate verification
type VerifyHandler struct {
	verifier    *verify.Service
	audit       Auditor
	maxFileSize int64
	logger      *zap.Logger
}

// NewVerifyHandler creates a new verify handler. audit may be nil.
func NewVerifyHandler(verifier *verify.Service, audit Auditor, maxFileSize int64, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{
		verifier:    verifier,
		audit:       audit,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// VerifyHash verifies the hash query parameter
// GET /verify?hash=
// GET /v1/verify?hash=
func (h *VerifyHandler) VerifyHash(c *gin.Context) {
	res, err := h.verifier.ByHash(c.Request.Context(), c.Query("hash"))
	h.respond(c, res, err)
}

// VerifyFile verifies an uploaded certificate file
// POST /v1/verify/file (multipart: file)
func (h *VerifyHandler) VerifyFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if bodyTooLarge(err) {
			RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
			return
		}
		h.respond(c, nil, verify.ErrNoInput)
		return
	}
	if fh.Size > h.maxFileSize {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", "Failed to read uploaded file")
		return
	}
	defer f.Close()

	res, err := h.verifier.ByFile(c.Request.Context(), fh.Filename, f)
	h.respond(c, res, err)
}

// VerifyQR verifies a QR image upload, or a payload already decoded by a
// client-side scanner
// POST /v1/verify/qr (multipart: image, or form: payload)
func (h *VerifyHandler) VerifyQR(c *gin.Context) {
	if payload := c.PostForm("payload"); payload != "" {
		res, err := h.verifier.ByPayload(c.Request.Context(), payload)
		h.respond(c, res, err)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if bodyTooLarge(err) {
			RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image too large")
			return
		}
		h.respond(c, nil, verify.ErrNoInput)
		return
	}
	if fh.Size > h.maxFileSize {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_image", "Failed to read uploaded image")
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_image", "Unsupported image format")
		return
	}

	res, err := h.verifier.ByQR(c.Request.Context(), img)
	h.respond(c, res, err)
}

func (h *VerifyHandler) respond(c *gin.Context, res *verify.Result, err error) {
	if h.audit != nil && err == nil {
		details, _ := json.Marshal(map[string]string{"method": res.Method, "hash": res.Hash})
		entry := &models.AuditLog{
			Timestamp: time.Now(),
			Action:    models.ActionCertVerify,
			ClientIP:  GetClientIP(c),
			UserAgent: c.GetHeader("User-Agent"),
			Success:   res.Valid,
			Details:   string(details),
		}
		if !res.Valid {
			entry.ErrorMsg = res.Reason
		}
		if aerr := h.audit.Create(entry); aerr != nil {
			h.logger.Error("Failed to write audit log", zap.Error(aerr))
		}
	}

	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, res)
}
