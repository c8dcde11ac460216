package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Issuer is a registered issuer as returned by getRegisteredIssuers
type Issuer struct {
	Wallet      common.Address `json:"wallet"`
	Name        string         `json:"name"`
	Institution string         `json:"institution"`
	IsApproved  bool           `json:"is_approved"`
	Deposit     *big.Int       `json:"deposit,omitempty"`
}
