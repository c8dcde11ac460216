// Package issuance pins certificate files and records them on the registry.
package issuance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/certhash"
	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/internal/pinning"
)

// Recorder stores issuances made by this service
type Recorder interface {
	Create(rec *models.IssuanceRecord) error
}

// Auditor writes audit entries
type Auditor interface {
	Create(log *models.AuditLog) error
}

// Request is one certificate to issue
type Request struct {
	RecipientName string
	CourseName    string
	FileName      string
	File          io.Reader
	// FileSize is the declared size; zero when unknown
	FileSize int64

	ClientIP  string
	UserAgent string
}

// Result describes an issued certificate
type Result struct {
	Hash        string `json:"hash"`
	IPFSURL     string `json:"ipfs_url"`
	MetadataURL string `json:"metadata_url,omitempty"`
	TxHash      string `json:"tx_hash"`
	VerifyURL   string `json:"verify_url"`
	HashMode    string `json:"hash_mode"`
	Salt        string `json:"salt,omitempty"`
}

// Options configures a Service
type Options struct {
	MaxFileSize int64
	PinMetadata bool
	// VerifyURL builds the public verification link for a hash
	VerifyURL func(hash string) string
}

// Service issues certificates
type Service struct {
	registry  contract.Registry
	pinner    pinning.Pinner
	deriver   *certhash.Deriver
	validator *Validator
	records   Recorder
	audit     Auditor
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an issuance service. records and audit may be nil.
func NewService(registry contract.Registry, pinner pinning.Pinner, deriver *certhash.Deriver,
	records Recorder, audit Auditor, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.VerifyURL == nil {
		opts.VerifyURL = func(hash string) string { return "/verify?hash=" + hash }
	}
	return &Service{
		registry:  registry,
		pinner:    pinner,
		deriver:   deriver,
		validator: NewValidator(registry, opts.MaxFileSize),
		records:   records,
		audit:     audit,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Issue validates the request, pins the file, derives the hash and issues
// the certificate on the registry
func (s *Service) Issue(ctx context.Context, req *Request) (*Result, error) {
	res, err := s.issue(ctx, req)

	entry := &models.AuditLog{
		Timestamp: s.now(),
		Action:    models.ActionCertIssue,
		Actor:     s.registry.Sender().Hex(),
		ClientIP:  req.ClientIP,
		UserAgent: req.UserAgent,
		Success:   err == nil,
	}
	if err != nil {
		entry.ErrorMsg = err.Error()
	} else {
		details, _ := json.Marshal(map[string]string{
			"hash":      res.Hash,
			"recipient": req.RecipientName,
			"course":    req.CourseName,
			"tx_hash":   res.TxHash,
		})
		entry.Details = string(details)
	}
	s.writeAudit(entry)

	return res, err
}

func (s *Service) issue(ctx context.Context, req *Request) (*Result, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	// The declared size may be missing or wrong; enforce the limit on the bytes read
	data, err := io.ReadAll(io.LimitReader(req.File, s.validator.MaxFileSize()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.validator.MaxFileSize() {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrFileTooLarge, s.validator.MaxFileSize())
	}

	if err := s.validator.ValidateIssuer(ctx); err != nil {
		return nil, err
	}

	pin, err := s.pinner.PinFile(ctx, req.FileName, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	d := s.deriver.Derive(pin.URL)
	hash := d.Hash.Hex()

	s.logger.Info("Issuing certificate",
		zap.String("hash", hash),
		zap.String("ipfs_url", pin.URL),
		zap.String("hash_mode", d.Mode),
	)

	tx, err := s.registry.IssueCertificate(ctx, req.RecipientName, req.CourseName, d.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}

	issuedAt := s.now().UTC()
	res := &Result{
		Hash:      hash,
		IPFSURL:   pin.URL,
		TxHash:    tx.Hex(),
		VerifyURL: s.opts.VerifyURL(hash),
		HashMode:  d.Mode,
		Salt:      d.Salt,
	}

	if s.opts.PinMetadata {
		res.MetadataURL = s.pinMetadata(ctx, req, res, issuedAt)
	}

	s.record(&models.IssuanceRecord{
		Hash:          hash,
		RecipientName: req.RecipientName,
		CourseName:    req.CourseName,
		IPFSURL:       pin.URL,
		MetadataURL:   res.MetadataURL,
		HashMode:      d.Mode,
		Salt:          d.Salt,
		TxHash:        res.TxHash,
		Issuer:        s.registry.Sender().Hex(),
		ClientIP:      req.ClientIP,
		IssuedAt:      issuedAt,
	})

	return res, nil
}

type metadata struct {
	RecipientName string    `json:"recipient_name"`
	CourseName    string    `json:"course_name"`
	Hash          string    `json:"hash"`
	FileURL       string    `json:"file_url"`
	Issuer        string    `json:"issuer"`
	IssuedAt      time.Time `json:"issued_at"`
}

func (s *Service) pinMetadata(ctx context.Context, req *Request, res *Result, issuedAt time.Time) string {
	pin, err := s.pinner.PinJSON(ctx, res.Hash+".json", metadata{
		RecipientName: req.RecipientName,
		CourseName:    req.CourseName,
		Hash:          res.Hash,
		FileURL:       res.IPFSURL,
		Issuer:        s.registry.Sender().Hex(),
		IssuedAt:      issuedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to pin certificate metadata", zap.String("hash", res.Hash), zap.Error(err))
		return ""
	}
	return pin.URL
}

func (s *Service) record(rec *models.IssuanceRecord) {
	if s.records == nil {
		return
	}
	if err := s.records.Create(rec); err != nil {
		s.logger.Error("Failed to record issuance", zap.String("hash", rec.Hash), zap.Error(err))
	}
}

func (s *Service) writeAudit(entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(entry); err != nil {
		s.logger.Error("Failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
