package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/pkg/ethutil"
)

// WalletHandler reports the signing wallet
type WalletHandler struct {
	address common.Address
	issuers *issuers.Service
	logger  *zap.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(address common.Address, issuerSvc *issuers.Service, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		address: address,
		issuers: issuerSvc,
		logger:  logger,
	}
}

// WalletResponse describes the signing wallet
type WalletResponse struct {
	Address  string `json:"address"`
	Approved bool   `json:"approved"`
	Deposit  string `json:"deposit"`
}

// GetWallet returns the signer address with its issuer state
// GET /v1/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	ctx := c.Request.Context()

	approved, err := h.issuers.IsApproved(ctx, h.address)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	deposit, err := h.issuers.Deposit(ctx, h.address)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondSuccess(c, WalletResponse{
		Address:  h.address.Hex(),
		Approved: approved,
		Deposit:  ethutil.FormatEther(deposit),
	})
}
