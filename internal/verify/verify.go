// Package verify checks certificates against the registry contract.
//
// A certificate can be presented as hash text, as a QR image carrying the
// verification link, or as the original file. Every path resolves to one
// hash and one verifyCertificate read.
package verify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/adamscao/certledger/internal/certhash"
	"github.com/adamscao/certledger/internal/contract"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/internal/pinning"
	"github.com/adamscao/certledger/internal/qrscan"
	"github.com/adamscao/certledger/pkg/ethutil"
)

// ErrNoInput is returned when a verification request carries nothing to check
var ErrNoInput = errors.New("no verification input")

// Verification methods
const (
	MethodHash = "hash"
	MethodQR   = "qr"
	MethodFile = "file"
)

// Reasons reported with an invalid result
const (
	ReasonMalformed = "malformed certificate hash"
	ReasonNotFound  = "certificate not found or revoked"
)

// Index looks up certificates issued by this service
type Index interface {
	ListByIPFSURL(ipfsURL string) ([]*models.IssuanceRecord, error)
}

// Result is the outcome of one verification
type Result struct {
	Method      string              `json:"method"`
	Hash        string              `json:"hash"`
	Valid       bool                `json:"valid"`
	Certificate *models.Certificate `json:"certificate,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// Service verifies certificates
type Service struct {
	registry contract.Registry
	pinner   pinning.Pinner
	index    Index
	logger   *zap.Logger
}

// NewService creates a verification service. pinner and index may be nil,
// which disables file verification and the salted-hash fallback.
func NewService(registry contract.Registry, pinner pinning.Pinner, index Index, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		pinner:   pinner,
		index:    index,
		logger:   logger,
	}
}

// ByHash verifies a hash given as text
func (s *Service) ByHash(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoInput
	}
	return s.check(ctx, MethodHash, text)
}

// ByQR decodes a QR image and verifies the hash it carries
func (s *Service) ByQR(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, ErrNoInput
	}

	payload, err := qrscan.Decode(img)
	if err != nil {
		return nil, err
	}

	return s.ByPayload(ctx, payload)
}

// ByPayload verifies an already decoded QR payload
func (s *Service) ByPayload(ctx context.Context, payload string) (*Result, error) {
	text := qrscan.PayloadHash(payload)
	if text == "" {
		return nil, ErrNoInput
	}
	return s.check(ctx, MethodQR, text)
}

// ByFile pins the file, derives its url-mode hash and verifies it.
// When that hash is unknown, a salted issuance of the same content
// recorded in the local index is verified instead.
func (s *Service) ByFile(ctx context.Context, name string, r io.Reader) (*Result, error) {
	if r == nil {
		return nil, ErrNoInput
	}
	if s.pinner == nil {
		return nil, errors.New("file verification requires a pinning service")
	}

	pin, err := s.pinner.PinFile(ctx, name, r)
	if err != nil {
		return nil, err
	}

	res, err := s.check(ctx, MethodFile, certhash.FromURL(pin.URL).Hex())
	if err != nil || res.Valid || s.index == nil {
		return res, err
	}

	records, err := s.index.ListByIPFSURL(pin.URL)
	if err != nil {
		s.logger.Warn("Failed to look up local issuances", zap.String("ipfs_url", pin.URL), zap.Error(err))
		return res, nil
	}
	for _, rec := range records {
		if rec.Hash == res.Hash {
			continue
		}
		alt, err := s.check(ctx, MethodFile, rec.Hash)
		if err != nil {
			return nil, err
		}
		if alt.Valid {
			return alt, nil
		}
	}

	return res, nil
}

func (s *Service) check(ctx context.Context, method, text string) (*Result, error) {
	res := &Result{Method: method, Hash: text}

	hash, err := ethutil.ParseHash(text)
	if err != nil {
		res.Reason = ReasonMalformed
		return res, nil
	}
	res.Hash = hash.Hex()

	valid, err := s.registry.VerifyCertificate(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify certificate: %w", err)
	}
	if !valid {
		res.Reason = ReasonNotFound
		return res, nil
	}
	res.Valid = true

	res.Certificate = s.details(ctx, hash)
	return res, nil
}

func (s *Service) details(ctx context.Context, hash common.Hash) *models.Certificate {
	cert, err := s.registry.Certificate(ctx, hash)
	if err != nil {
		s.logger.Warn("Failed to read certificate details", zap.String("hash", hash.Hex()), zap.Error(err))
		return nil
	}
	if !cert.Exists() {
		return nil
	}
	return cert
}
