package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adamscao/certledger/internal/contract"
)

var (
	// ErrMissingFields is returned when recipient, course or file is absent
	ErrMissingFields = errors.New("please fill all fields")
	// ErrFileTooLarge is returned when the upload exceeds certificates.max_file_size
	ErrFileTooLarge = errors.New("file too large")
	// ErrNotApproved is returned when the signing wallet is not an approved issuer
	ErrNotApproved = errors.New("issuer not approved")
)

// Validator checks issue requests before anything is pinned or sent
type Validator struct {
	registry    contract.Registry
	maxFileSize int64
}

// NewValidator creates a new request validator
func NewValidator(registry contract.Registry, maxFileSize int64) *Validator {
	return &Validator{
		registry:    registry,
		maxFileSize: maxFileSize,
	}
}

// ValidateRequest checks required fields and the declared file size
func (v *Validator) ValidateRequest(req *Request) error {
	req.RecipientName = strings.TrimSpace(req.RecipientName)
	req.CourseName = strings.TrimSpace(req.CourseName)

	if req.RecipientName == "" || req.CourseName == "" || req.File == nil {
		return ErrMissingFields
	}

	if req.FileSize > v.maxFileSize {
		return fmt.Errorf("%w (%d bytes, limit %d)", ErrFileTooLarge, req.FileSize, v.maxFileSize)
	}

	return nil
}

// ValidateIssuer checks that the signing wallet may issue
func (v *Validator) ValidateIssuer(ctx context.Context) error {
	approved, err := v.registry.IsIssuerApproved(ctx, v.registry.Sender())
	if err != nil {
		return fmt.Errorf("failed to check issuer approval: %w", err)
	}

	if !approved {
		return ErrNotApproved
	}

	return nil
}

// MaxFileSize returns the upload limit in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}
