// Package contracttest provides an in-memory contract.Registry for tests.
package contracttest

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/models"
)

// ErrRevert mimics a contract revert
var ErrRevert = errors.New("execution reverted")

// Registry is an in-memory registry that follows the contract rules the
// service relies on: only approved issuers issue, revoked certificates
// verify as false, unknown hashes read as zero values.
type Registry struct {
	mu sync.Mutex

	From     common.Address
	Issuers  map[common.Address]*models.Issuer
	Order    []common.Address
	Certs    map[common.Hash]*models.Certificate
	ByIssuer map[common.Address][]common.Hash

	// Err, when set, is returned by every call
	Err error
	// Calls records method names in call order
	Calls []string

	txCount uint64
}

var _ contract.Registry = (*Registry)(nil)

// New creates an empty registry whose writes are signed by from
func New(from common.Address) *Registry {
	return &Registry{
		From:     from,
		Issuers:  make(map[common.Address]*models.Issuer),
		Certs:    make(map[common.Hash]*models.Certificate),
		ByIssuer: make(map[common.Address][]common.Hash),
	}
}

// AddIssuer seeds a registered issuer
func (r *Registry) AddIssuer(is models.Issuer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Issuers[is.Wallet]; !ok {
		r.Order = append(r.Order, is.Wallet)
	}
	r.Issuers[is.Wallet] = &is
}

func (r *Registry) record(method string) error {
	r.Calls = append(r.Calls, method)
	return r.Err
}

func (r *Registry) nextTx() common.Hash {
	r.txCount++
	return common.BigToHash(new(big.Int).SetUint64(r.txCount))
}

// CallCount returns how many times method was called
func (r *Registry) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (r *Registry) Sender() common.Address { return r.From }

func (r *Registry) RegisterIssuer(ctx context.Context, name, institution string, deposit *big.Int) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("registerIssuer"); err != nil {
		return common.Hash{}, err
	}
	if _, ok := r.Issuers[r.From]; ok {
		return common.Hash{}, ErrRevert
	}
	r.Issuers[r.From] = &models.Issuer{Wallet: r.From, Name: name, Institution: institution, Deposit: deposit}
	r.Order = append(r.Order, r.From)
	return r.nextTx(), nil
}

func (r *Registry) ApproveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("approveIssuer"); err != nil {
		return common.Hash{}, err
	}
	is, ok := r.Issuers[issuer]
	if !ok {
		return common.Hash{}, ErrRevert
	}
	is.IsApproved = true
	return r.nextTx(), nil
}

func (r *Registry) RemoveIssuer(ctx context.Context, issuer common.Address) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("removeIssuer"); err != nil {
		return common.Hash{}, err
	}
	if _, ok := r.Issuers[issuer]; !ok {
		return common.Hash{}, ErrRevert
	}
	delete(r.Issuers, issuer)
	for i, a := range r.Order {
		if a == issuer {
			r.Order = append(r.Order[:i], r.Order[i+1:]...)
			break
		}
	}
	return r.nextTx(), nil
}

func (r *Registry) RegisteredIssuers(ctx context.Context) ([]models.Issuer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("getRegisteredIssuers"); err != nil {
		return nil, err
	}
	out := make([]models.Issuer, 0, len(r.Order))
	for _, a := range r.Order {
		out = append(out, *r.Issuers[a])
	}
	return out, nil
}

func (r *Registry) IsIssuerApproved(ctx context.Context, issuer common.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("isIssuerApproved"); err != nil {
		return false, err
	}
	is, ok := r.Issuers[issuer]
	return ok && is.IsApproved, nil
}

func (r *Registry) IssueCertificate(ctx context.Context, recipientName, courseName string, hash common.Hash) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("issueCertificate"); err != nil {
		return common.Hash{}, err
	}
	is, ok := r.Issuers[r.From]
	if !ok || !is.IsApproved {
		return common.Hash{}, ErrRevert
	}
	if _, exists := r.Certs[hash]; exists {
		return common.Hash{}, ErrRevert
	}
	r.Certs[hash] = &models.Certificate{
		Hash:          hash,
		RecipientName: recipientName,
		CourseName:    courseName,
		IssueDate:     time.Now().UTC().Truncate(time.Second),
		IsValid:       true,
		Issuer:        r.From,
	}
	r.ByIssuer[r.From] = append(r.ByIssuer[r.From], hash)
	return r.nextTx(), nil
}

func (r *Registry) RevokeCertificate(ctx context.Context, hash common.Hash) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("revokeCertificate"); err != nil {
		return common.Hash{}, err
	}
	c, ok := r.Certs[hash]
	if !ok || c.Issuer != r.From {
		return common.Hash{}, ErrRevert
	}
	c.IsValid = false
	return r.nextTx(), nil
}

func (r *Registry) VerifyCertificate(ctx context.Context, hash common.Hash) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("verifyCertificate"); err != nil {
		return false, err
	}
	c, ok := r.Certs[hash]
	return ok && c.IsValid, nil
}

func (r *Registry) Certificate(ctx context.Context, hash common.Hash) (*models.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("certificates"); err != nil {
		return nil, err
	}
	c, ok := r.Certs[hash]
	if !ok {
		return &models.Certificate{Hash: hash, IssueDate: time.Unix(0, 0).UTC()}, nil
	}
	cp := *c
	return &cp, nil
}

func (r *Registry) CertificatesByIssuer(ctx context.Context, issuer common.Address) ([]common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("getCertificatesByIssuer"); err != nil {
		return nil, err
	}
	return append([]common.Hash(nil), r.ByIssuer[issuer]...), nil
}

func (r *Registry) WithdrawDeposit(ctx context.Context) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("withdrawDeposit"); err != nil {
		return common.Hash{}, err
	}
	is, ok := r.Issuers[r.From]
	if !ok || is.Deposit == nil || is.Deposit.Sign() == 0 {
		return common.Hash{}, ErrRevert
	}
	is.Deposit = new(big.Int)
	return r.nextTx(), nil
}
