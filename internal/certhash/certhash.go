// Package certhash derives certificate identifiers from pinned gateway URLs.
//
// A certificate hash is keccak256 over the UTF-8 bytes of the gateway URL,
// optionally followed by a decimal Unix-millisecond salt.
package certhash

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/adamscao/certledger/internal/config"
)

// FromURL hashes the gateway URL alone. Identical content pins to the same
// URL, so this hash can be re-derived from the file at verification time.
func FromURL(url string) common.Hash {
	return keccak([]byte(url))
}

// FromURLWithSalt hashes the gateway URL followed by salt.
func FromURLWithSalt(url, salt string) common.Hash {
	return keccak([]byte(url + salt))
}

func keccak(data []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Derivation is the outcome of deriving a hash for one issuance.
type Derivation struct {
	Hash common.Hash
	Mode string
	// Salt is empty in url mode.
	Salt string
}

// Deriver derives hashes in the configured mode.
type Deriver struct {
	mode string
	now  func() time.Time
}

// NewDeriver creates a deriver for one of the config.HashMode* values
func NewDeriver(mode string) (*Deriver, error) {
	switch mode {
	case config.HashModeURL, config.HashModeURLTimestamp:
	default:
		return nil, fmt.Errorf("unsupported hash mode: %s", mode)
	}
	return &Deriver{mode: mode, now: time.Now}, nil
}

// WithClock replaces the time source used for salts.
func (d *Deriver) WithClock(now func() time.Time) *Deriver {
	d.now = now
	return d
}

// Mode returns the configured mode
func (d *Deriver) Mode() string {
	return d.mode
}

// Derive computes the certificate hash for a gateway URL
func (d *Deriver) Derive(url string) Derivation {
	if d.mode == config.HashModeURL {
		return Derivation{Hash: FromURL(url), Mode: d.mode}
	}

	salt := strconv.FormatInt(d.now().UnixMilli(), 10)
	return Derivation{
		Hash: FromURLWithSalt(url, salt),
		Mode: d.mode,
		Salt: salt,
	}
}
