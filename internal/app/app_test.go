package app

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/config"
	"github.com/adamscao/certledger/internal/contract/contracttest"
)

func TestNewServices(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "data", "certledger.db")
	cfg.Admin.Password = "s3cret"

	database, err := OpenDatabase(cfg)
	require.NoError(t, err)
	defer database.Close()

	svcs, err := NewServices(cfg, contracttest.New(common.HexToAddress("0x01")), database, zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, svcs.Issuance)
	assert.NotNil(t, svcs.Issuers)
	assert.NotNil(t, svcs.Verifier)
	assert.True(t, svcs.Gate.CheckPassword("s3cret"))
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/QmX", svcs.Pinner.GatewayURL("QmX"))
}

func TestNewServices_BadHashMode(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Certificates.HashMode = "sha256"

	database, err := OpenDatabase(cfg)
	require.NoError(t, err)
	defer database.Close()

	_, err = NewServices(cfg, contracttest.New(common.Address{}), database, zap.NewNop())
	assert.Error(t, err)
}
