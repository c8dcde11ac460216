// Package issuers manages issuer registration, approval and certificate listing.
package issuers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/pkg/ethutil"
)

var (
	// ErrMissingFields is returned when name or institution is absent
	ErrMissingFields = errors.New("name and institution are required")
	// ErrInvalidDeposit is returned for a deposit that is not a positive ether amount
	ErrInvalidDeposit = errors.New("invalid deposit amount")
)

// Auditor writes audit entries
type Auditor interface {
	Create(log *models.AuditLog) error
}

// Caller identifies who triggered a write
type Caller struct {
	Actor     string
	ClientIP  string
	UserAgent string
}

// Listing splits registered issuers by approval state
type Listing struct {
	Pending  []models.Issuer `json:"pending"`
	Approved []models.Issuer `json:"approved"`
}

// Service wraps the registry's issuer operations
type Service struct {
	registry   contract.Registry
	audit      Auditor
	minDeposit string
	maxReads   int
	logger     *zap.Logger
}

// NewService creates an issuer service. audit may be nil.
func NewService(registry contract.Registry, audit Auditor, minDeposit string, maxConcurrentReads int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrentReads <= 0 {
		maxConcurrentReads = 1
	}
	return &Service{
		registry:   registry,
		audit:      audit,
		minDeposit: minDeposit,
		maxReads:   maxConcurrentReads,
		logger:     logger,
	}
}

// Register registers the signing wallet as an issuer, paying deposit ether.
// An empty deposit pays the configured minimum.
func (s *Service) Register(ctx context.Context, caller Caller, name, institution, deposit string) (common.Hash, error) {
	name = strings.TrimSpace(name)
	institution = strings.TrimSpace(institution)

	tx, err := s.register(ctx, name, institution, deposit)
	s.writeAudit(caller, models.ActionIssuerRegister, err, map[string]string{
		"name":        name,
		"institution": institution,
		"deposit":     deposit,
	})
	return tx, err
}

func (s *Service) register(ctx context.Context, name, institution, deposit string) (common.Hash, error) {
	if name == "" || institution == "" {
		return common.Hash{}, ErrMissingFields
	}

	if strings.TrimSpace(deposit) == "" {
		deposit = s.minDeposit
	}
	wei, err := ethutil.ParseEther(deposit)
	if err != nil || wei.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidDeposit, deposit)
	}

	tx, err := s.registry.RegisterIssuer(ctx, name, institution, wei)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to register issuer: %w", err)
	}

	s.logger.Info("Issuer registered",
		zap.String("wallet", s.registry.Sender().Hex()),
		zap.String("deposit", ethutil.FormatEther(wei)),
	)
	return tx, nil
}

// List returns registered issuers split into pending and approved
func (s *Service) List(ctx context.Context) (*Listing, error) {
	all, err := s.registry.RegisteredIssuers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers: %w", err)
	}

	out := &Listing{
		Pending:  []models.Issuer{},
		Approved: []models.Issuer{},
	}
	for _, is := range all {
		if is.IsApproved {
			out.Approved = append(out.Approved, is)
		} else {
			out.Pending = append(out.Pending, is)
		}
	}
	return out, nil
}

// Approve approves a pending issuer
func (s *Service) Approve(ctx context.Context, caller Caller, issuer common.Address) (common.Hash, error) {
	tx, err := s.registry.ApproveIssuer(ctx, issuer)
	if err != nil {
		err = fmt.Errorf("failed to approve issuer: %w", err)
	}
	s.writeAudit(caller, models.ActionIssuerApprove, err, map[string]string{"issuer": issuer.Hex()})
	return tx, err
}

// Remove removes an issuer
func (s *Service) Remove(ctx context.Context, caller Caller, issuer common.Address) (common.Hash, error) {
	tx, err := s.registry.RemoveIssuer(ctx, issuer)
	if err != nil {
		err = fmt.Errorf("failed to remove issuer: %w", err)
	}
	s.writeAudit(caller, models.ActionIssuerRemove, err, map[string]string{"issuer": issuer.Hex()})
	return tx, err
}

// IsApproved reports whether issuer may issue certificates
func (s *Service) IsApproved(ctx context.Context, issuer common.Address) (bool, error) {
	ok, err := s.registry.IsIssuerApproved(ctx, issuer)
	if err != nil {
		return false, fmt.Errorf("failed to check issuer approval: %w", err)
	}
	return ok, nil
}

// Certificates returns every certificate issued by issuer, in registry order
func (s *Service) Certificates(ctx context.Context, issuer common.Address) ([]*models.Certificate, error) {
	hashes, err := s.registry.CertificatesByIssuer(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	certs := make([]*models.Certificate, len(hashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxReads)
	for i, h := range hashes {
		i, h := i, h
		g.Go(func() error {
			cert, err := s.registry.Certificate(gctx, h)
			if err != nil {
				return fmt.Errorf("failed to read certificate %s: %w", h.Hex(), err)
			}
			cert.Hash = h
			certs[i] = cert
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return certs, nil
}

// Revoke revokes a certificate issued by the signing wallet
func (s *Service) Revoke(ctx context.Context, caller Caller, hash common.Hash) (common.Hash, error) {
	tx, err := s.registry.RevokeCertificate(ctx, hash)
	if err != nil {
		err = fmt.Errorf("failed to revoke certificate: %w", err)
	}
	s.writeAudit(caller, models.ActionCertRevoke, err, map[string]string{"hash": hash.Hex()})
	return tx, err
}

// WithdrawDeposit withdraws the signing wallet's deposit
func (s *Service) WithdrawDeposit(ctx context.Context, caller Caller) (common.Hash, error) {
	tx, err := s.registry.WithdrawDeposit(ctx)
	if err != nil {
		err = fmt.Errorf("failed to withdraw deposit: %w", err)
	}
	s.writeAudit(caller, models.ActionDepositWithdraw, err, nil)
	return tx, err
}

// Deposit returns the deposit held for issuer, or zero when unregistered
func (s *Service) Deposit(ctx context.Context, issuer common.Address) (*big.Int, error) {
	all, err := s.registry.RegisteredIssuers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers: %w", err)
	}
	for _, is := range all {
		if is.Wallet == issuer && is.Deposit != nil {
			return is.Deposit, nil
		}
	}
	return new(big.Int), nil
}

func (s *Service) writeAudit(caller Caller, action string, opErr error, details map[string]string) {
	if s.audit == nil {
		return
	}

	actor := caller.Actor
	if actor == "" {
		actor = s.registry.Sender().Hex()
	}

	entry := &models.AuditLog{
		Timestamp: time.Now(),
		Action:    action,
		Actor:     actor,
		ClientIP:  caller.ClientIP,
		UserAgent: caller.UserAgent,
		Success:   opErr == nil,
	}
	if opErr != nil {
		entry.ErrorMsg = opErr.Error()
	}
	if len(details) > 0 {
		b, _ := json.Marshal(details)
		entry.Details = string(b)
	}

	if err := s.audit.Create(entry); err != nil {
		s.logger.Error("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
