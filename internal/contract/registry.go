package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/models"
)

var (
	// ErrTxFailed is returned when a transaction is mined but reverted
	ErrTxFailed = errors.New("transaction failed")
	// ErrReadOnly is returned for writes on a registry without a signer
	ErrReadOnly = errors.New("registry has no signer")
)

// Registry is the certificate registry contract as seen by this service.
// Writes return the transaction hash once the transaction is mined.
type Registry interface {
	RegisterIssuer(ctx context.Context, name, institution string, deposit *big.Int) (common.Hash, error)
	ApproveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error)
	RemoveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error)
	RegisteredIssuers(ctx context.Context) ([]models.Issuer, error)
	IsIssuerApproved(ctx context.Context, issuer common.Address) (bool, error)
	IssueCertificate(ctx context.Context, recipientName, courseName string, hash common.Hash) (common.Hash, error)
	RevokeCertificate(ctx context.Context, hash common.Hash) (common.Hash, error)
	VerifyCertificate(ctx context.Context, hash common.Hash) (bool, error)
	Certificate(ctx context.Context, hash common.Hash) (*models.Certificate, error)
	CertificatesByIssuer(ctx context.Context, issuer common.Address) ([]common.Hash, error)
	WithdrawDeposit(ctx context.Context) (common.Hash, error)
	// Sender is the address that signs writes
	Sender() common.Address
}

// Backend is what EthRegistry needs from a chain connection; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EthRegistry calls the registry contract over JSON-RPC
type EthRegistry struct {
	address   common.Address
	contract  *bind.BoundContract
	backend   Backend
	auth      *bind.TransactOpts
	txTimeout time.Duration
	logger    *zap.Logger

	// one write in flight at a time so pending nonces don't collide
	sendMu sync.Mutex
}

// NewEthRegistry binds the contract at address. auth may be nil for a read-only registry.
func NewEthRegistry(
	address common.Address,
	parsed abi.ABI,
	backend Backend,
	auth *bind.TransactOpts,
	txTimeout time.Duration,
	logger *zap.Logger,
) *EthRegistry {
	return &EthRegistry{
		address:   address,
		contract:  bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:   backend,
		auth:      auth,
		txTimeout: txTimeout,
		logger:    logger,
	}
}

// Address returns the contract address
func (r *EthRegistry) Address() common.Address {
	return r.address
}

// Sender returns the signing address, or the zero address when read-only
func (r *EthRegistry) Sender() common.Address {
	if r.auth == nil {
		return common.Address{}
	}
	return r.auth.From
}

func (r *EthRegistry) RegisterIssuer(ctx context.Context, name, institution string, deposit *big.Int) (common.Hash, error) {
	return r.transact(ctx, deposit, "registerIssuer", name, institution)
}

func (r *EthRegistry) ApproveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error) {
	return r.transact(ctx, nil, "approveIssuer", issuer)
}

func (r *EthRegistry) RemoveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error) {
	return r.transact(ctx, nil, "removeIssuer", issuer)
}

func (r *EthRegistry) IssueCertificate(ctx context.Context, recipientName, courseName string, hash common.Hash) (common.Hash, error) {
	return r.transact(ctx, nil, "issueCertificate", recipientName, courseName, [32]byte(hash))
}

func (r *EthRegistry) RevokeCertificate(ctx context.Context, hash common.Hash) (common.Hash, error) {
	return r.transact(ctx, nil, "revokeCertificate", [32]byte(hash))
}

func (r *EthRegistry) WithdrawDeposit(ctx context.Context) (common.Hash, error) {
	return r.transact(ctx, nil, "withdrawDeposit")
}

// issuerTuple mirrors the getRegisteredIssuers tuple; field order must follow the ABI.
type issuerTuple struct {
	Wallet      common.Address
	Name        string
	Institution string
	IsApproved  bool
	Deposit     *big.Int
}

func (r *EthRegistry) RegisteredIssuers(ctx context.Context) ([]models.Issuer, error) {
	out, err := r.call(ctx, "getRegisteredIssuers")
	if err != nil {
		return nil, err
	}

	tuples, err := convert[[]issuerTuple](out, 0)
	if err != nil {
		return nil, err
	}

	issuers := make([]models.Issuer, 0, len(tuples))
	for _, t := range tuples {
		issuers = append(issuers, models.Issuer{
			Wallet:      t.Wallet,
			Name:        t.Name,
			Institution: t.Institution,
			IsApproved:  t.IsApproved,
			Deposit:     t.Deposit,
		})
	}
	return issuers, nil
}

func (r *EthRegistry) IsIssuerApproved(ctx context.Context, issuer common.Address) (bool, error) {
	out, err := r.call(ctx, "isIssuerApproved", issuer)
	if err != nil {
		return false, err
	}
	return convert[bool](out, 0)
}

func (r *EthRegistry) VerifyCertificate(ctx context.Context, hash common.Hash) (bool, error) {
	out, err := r.call(ctx, "verifyCertificate", [32]byte(hash))
	if err != nil {
		return false, err
	}
	return convert[bool](out, 0)
}

func (r *EthRegistry) Certificate(ctx context.Context, hash common.Hash) (*models.Certificate, error) {
	out, err := r.call(ctx, "certificates", [32]byte(hash))
	if err != nil {
		return nil, err
	}

	cert := &models.Certificate{Hash: hash}
	if cert.RecipientName, err = convert[string](out, 0); err != nil {
		return nil, err
	}
	if cert.CourseName, err = convert[string](out, 1); err != nil {
		return nil, err
	}
	issueDate, err := convert[*big.Int](out, 2)
	if err != nil {
		return nil, err
	}
	cert.IssueDate = time.Unix(issueDate.Int64(), 0).UTC()
	if cert.IsValid, err = convert[bool](out, 3); err != nil {
		return nil, err
	}
	if cert.IPFSURL, err = convert[string](out, 4); err != nil {
		return nil, err
	}
	if cert.Issuer, err = convert[common.Address](out, 5); err != nil {
		return nil, err
	}

	return cert, nil
}

func (r *EthRegistry) CertificatesByIssuer(ctx context.Context, issuer common.Address) ([]common.Hash, error) {
	out, err := r.call(ctx, "getCertificatesByIssuer", issuer)
	if err != nil {
		return nil, err
	}

	raw, err := convert[[][32]byte](out, 0)
	if err != nil {
		return nil, err
	}

	hashes := make([]common.Hash, len(raw))
	for i, h := range raw {
		hashes[i] = common.Hash(h)
	}
	return hashes, nil
}

func (r *EthRegistry) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	opts := &bind.CallOpts{Context: ctx, From: r.Sender()}

	var out []interface{}
	if err := r.contract.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (r *EthRegistry) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	if r.auth == nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, ErrReadOnly)
	}

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	opts := *r.auth
	opts.Context = ctx
	opts.Value = value

	tx, err := r.contract.Transact(&opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}
	r.logger.Info("Transaction sent",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
	)

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.txTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, r.txTimeout)
	}
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, r.backend, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("waiting for %s tx %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%s reverted in tx %s: %w", method, tx.Hash().Hex(), ErrTxFailed)
	}

	r.logger.Info("Transaction mined",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return tx.Hash(), nil
}

// convert reads output i as T. abi.ConvertType panics on a shape mismatch,
// which happens when a replacement ABI disagrees with this client.
func convert[T any](out []interface{}, i int) (v T, err error) {
	if i >= len(out) {
		return v, fmt.Errorf("missing ABI output %d", i)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected ABI output %d of type %T: %v", i, out[i], p)
		}
	}()
	return *abi.ConvertType(out[i], new(T)).(*T), nil
}
