package issuers

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamscao/certledger/internal/contract/contracttest"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/pkg/ethutil"
)

var (
	signer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	other  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type memAudit struct {
	logs []*models.AuditLog
}

func (m *memAudit) Create(log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newService(t *testing.T) (*Service, *contracttest.Registry, *memAudit) {
	t.Helper()
	reg := contracttest.New(signer)
	audit := &memAudit{}
	return NewService(reg, audit, "0.01", 4, nil), reg, audit
}

func TestRegister_DefaultDeposit(t *testing.T) {
	svc, reg, audit := newService(t)

	_, err := svc.Register(context.Background(), Caller{ClientIP: "10.0.0.1"}, " Ada ", "Analytical Society", "")
	require.NoError(t, err)

	is := reg.Issuers[signer]
	require.NotNil(t, is)
	assert.Equal(t, "Ada", is.Name)
	want, _ := ethutil.ParseEther("0.01")
	assert.Zero(t, want.Cmp(is.Deposit))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.ActionIssuerRegister, audit.logs[0].Action)
	assert.Equal(t, signer.Hex(), audit.logs[0].Actor)
	assert.True(t, audit.logs[0].Success)
}

func TestRegister_Validation(t *testing.T) {
	svc, reg, audit := newService(t)

	_, err := svc.Register(context.Background(), Caller{}, "", "inst", "1")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Register(context.Background(), Caller{}, "Ada", "inst", "abc")
	assert.ErrorIs(t, err, ErrInvalidDeposit)

	_, err = svc.Register(context.Background(), Caller{}, "Ada", "inst", "0")
	assert.ErrorIs(t, err, ErrInvalidDeposit)

	assert.Zero(t, reg.CallCount("registerIssuer"))
	require.Len(t, audit.logs, 3)
	assert.False(t, audit.logs[2].Success)
}

func TestListSplitsByApproval(t *testing.T) {
	svc, reg, _ := newService(t)
	reg.AddIssuer(models.Issuer{Wallet: signer, Name: "Ada", IsApproved: true})
	reg.AddIssuer(models.Issuer{Wallet: other, Name: "Bob"})

	l, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, l.Approved, 1)
	require.Len(t, l.Pending, 1)
	assert.Equal(t, "Ada", l.Approved[0].Name)
	assert.Equal(t, "Bob", l.Pending[0].Name)
}

func TestListEmpty(t *testing.T) {
	svc, _, _ := newService(t)

	l, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, l.Pending)
	assert.NotNil(t, l.Approved)
}

func TestApproveAndRemove(t *testing.T) {
	svc, reg, audit := newService(t)
	reg.AddIssuer(models.Issuer{Wallet: other, Name: "Bob"})
	caller := Caller{Actor: "admin", ClientIP: "10.0.0.2"}

	_, err := svc.Approve(context.Background(), caller, other)
	require.NoError(t, err)

	ok, err := svc.IsApproved(context.Background(), other)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Remove(context.Background(), caller, other)
	require.NoError(t, err)

	ok, err = svc.IsApproved(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Approve(context.Background(), caller, other)
	assert.ErrorIs(t, err, contracttest.ErrRevert)

	require.Len(t, audit.logs, 3)
	assert.Equal(t, "admin", audit.logs[0].Actor)
	assert.Equal(t, models.ActionIssuerRemove, audit.logs[1].Action)
	assert.False(t, audit.logs[2].Success)
}

func TestCertificatesPreservesOrder(t *testing.T) {
	svc, reg, _ := newService(t)
	reg.AddIssuer(models.Issuer{Wallet: signer, IsApproved: true})

	var hashes []common.Hash
	for i := 0; i < 10; i++ {
		h := common.BigToHash(big.NewInt(int64(i + 1)))
		hashes = append(hashes, h)
		_, err := reg.IssueCertificate(context.Background(), "r", "c", h)
		require.NoError(t, err)
	}

	certs, err := svc.Certificates(context.Background(), signer)
	require.NoError(t, err)
	require.Len(t, certs, len(hashes))
	for i, c := range certs {
		assert.Equal(t, hashes[i], c.Hash)
	}
	assert.Equal(t, len(hashes), reg.CallCount("certificates"))
}

func TestCertificatesReadError(t *testing.T) {
	svc, reg, _ := newService(t)
	reg.AddIssuer(models.Issuer{Wallet: signer, IsApproved: true})
	_, err := reg.IssueCertificate(context.Background(), "r", "c", common.HexToHash("0x01"))
	require.NoError(t, err)

	reg.Err = errors.New("boom")
	_, err = svc.Certificates(context.Background(), signer)
	assert.Error(t, err)
}

func TestRevokeAndWithdraw(t *testing.T) {
	svc, reg, _ := newService(t)
	reg.AddIssuer(models.Issuer{Wallet: signer, IsApproved: true, Deposit: big.NewInt(100)})

	h := common.HexToHash("0xabc")
	_, err := reg.IssueCertificate(context.Background(), "r", "c", h)
	require.NoError(t, err)

	_, err = svc.Revoke(context.Background(), Caller{}, h)
	require.NoError(t, err)
	assert.False(t, reg.Certs[h].IsValid)

	dep, err := svc.Deposit(context.Background(), signer)
	require.NoError(t, err)
	assert.EqualValues(t, 100, dep.Int64())

	_, err = svc.WithdrawDeposit(context.Background(), Caller{})
	require.NoError(t, err)

	dep, err = svc.Deposit(context.Background(), signer)
	require.NoError(t, err)
	assert.Zero(t, dep.Sign())

	_, err = svc.WithdrawDeposit(context.Background(), Caller{})
	assert.ErrorIs(t, err, contracttest.ErrRevert)
}
