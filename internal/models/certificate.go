package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Certificate is the on-chain certificate record as returned by certificates(hash)
type Certificate struct {
	Hash          common.Hash    `json:"hash"`
	RecipientName string         `json:"recipient_name"`
	CourseName    string         `json:"course_name"`
	IssueDate     time.Time      `json:"issue_date"`
	IsValid       bool           `json:"is_valid"`
	IPFSURL       string         `json:"ipfs_url,omitempty"`
	Issuer        common.Address `json:"issuer"`
}

// Exists reports whether the contract returned a populated record.
// Unknown hashes come back as zero values.
func (c *Certificate) Exists() bool {
	return c != nil && c.IssueDate.Unix() > 0
}

// IssuanceRecord is the local index entry written when this service issues a certificate
type IssuanceRecord struct {
	ID            int64     `json:"id"`
	Hash          string    `json:"hash"`
	RecipientName string    `json:"recipient_name"`
	CourseName    string    `json:"course_name"`
	IPFSURL       string    `json:"ipfs_url"`
	MetadataURL   string    `json:"metadata_url,omitempty"`
	HashMode      string    `json:"hash_mode"`
	Salt          string    `json:"salt,omitempty"`
	TxHash        string    `json:"tx_hash"`
	Issuer        string    `json:"issuer"`
	ClientIP      string    `json:"client_ip,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}
