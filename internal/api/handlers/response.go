package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/issuance"
	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/pinning"
	"github.com/adamscao/certledger/internal/qrscan"
	"github.com/adamscao/certledger/internal/verify"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// TxResponse is returned by endpoints that send a transaction
type TxResponse struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
}

// RespondError sends an error response
func RespondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// RespondErrorWithDetails sends an error response with details
func RespondErrorWithDetails(c *gin.Context, statusCode int, errorCode string, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// RespondSuccess sends a success response
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondServiceError maps a service error onto a status and error code
func RespondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, issuance.ErrMissingFields), errors.Is(err, issuers.ErrMissingFields):
		RespondError(c, http.StatusBadRequest, "missing_fields", err.Error())
	case errors.Is(err, issuers.ErrInvalidDeposit):
		RespondError(c, http.StatusBadRequest, "invalid_deposit", err.Error())
	case errors.Is(err, verify.ErrNoInput):
		RespondError(c, http.StatusBadRequest, "no_input", "Provide a hash, a QR image or a file")
	case errors.Is(err, issuance.ErrFileTooLarge):
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.Is(err, issuance.ErrNotApproved):
		RespondError(c, http.StatusForbidden, "not_approved", "Issuer wallet is not approved")
	case errors.Is(err, qrscan.ErrNoQRCode):
		RespondError(c, http.StatusUnprocessableEntity, "no_qr_code", "No QR code found in image")
	case errors.Is(err, pinning.ErrUploadFailed):
		logger.Warn("Pinning failed", zap.Error(err))
		RespondError(c, http.StatusBadGateway, "upload_failed", "IPFS upload failed")
	case errors.Is(err, contract.ErrReadOnly):
		RespondError(c, http.StatusServiceUnavailable, "read_only", "No signing wallet configured")
	case errors.Is(err, contract.ErrTxFailed), isRevert(err):
		logger.Warn("Transaction failed", zap.Error(err))
		RespondError(c, http.StatusConflict, "transaction_failed", err.Error())
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		RespondError(c, http.StatusBadGateway, "chain_error", err.Error())
	}
}

// reverts surface from gas estimation before a transaction is sent
func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted")
}

// bodyTooLarge reports whether reading the request hit the upload limit
func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// GetClientIP gets the real client IP address. X-Forwarded-For is only
// read from peers listed in server.trusted_proxies.
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}

func callerFrom(c *gin.Context, actor string) issuers.Caller {
	return issuers.Caller{
		Actor:     actor,
		ClientIP:  GetClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
