package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adamscao/certledger/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// CertRepository handles the local index of issued certificates
type CertRepository struct {
	db *sql.DB
}

// NewCertRepository creates a new certificate repository
func NewCertRepository(db *sql.DB) *CertRepository {
	return &CertRepository{db: db}
}

const issuanceColumns = `
	id, hash, recipient_name, course_name, ipfs_url, metadata_url,
	hash_mode, salt, tx_hash, issuer, client_ip, issued_at`

// Create stores a new issuance record
func (r *CertRepository) Create(rec *models.IssuanceRecord) error {
	query := `
		INSERT INTO issued_certificates (
			hash, recipient_name, course_name, ipfs_url, metadata_url,
			hash_mode, salt, tx_hash, issuer, client_ip, issued_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(query,
		rec.Hash,
		rec.RecipientName,
		rec.CourseName,
		rec.IPFSURL,
		rec.MetadataURL,
		rec.HashMode,
		rec.Salt,
		rec.TxHash,
		rec.Issuer,
		rec.ClientIP,
		rec.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create issuance record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id

	return nil
}

// GetByHash retrieves an issuance record by certificate hash
func (r *CertRepository) GetByHash(hash string) (*models.IssuanceRecord, error) {
	query := `SELECT ` + issuanceColumns + ` FROM issued_certificates WHERE hash = ?`

	rec, err := scanIssuance(r.db.QueryRow(query, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issuance %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issuance record: %w", err)
	}
	return rec, nil
}

// ListByIPFSURL returns every issuance of the same pinned content, newest first.
// Salted hashes give one content several certificate hashes.
func (r *CertRepository) ListByIPFSURL(ipfsURL string) ([]*models.IssuanceRecord, error) {
	query := `SELECT ` + issuanceColumns + `
		FROM issued_certificates
		WHERE ipfs_url = ?
		ORDER BY issued_at DESC, id DESC`

	return r.list(query, ipfsURL)
}

// ListByIssuer lists issuance records for an issuer address, newest first
func (r *CertRepository) ListByIssuer(issuer string, limit int) ([]*models.IssuanceRecord, error) {
	query := `SELECT ` + issuanceColumns + `
		FROM issued_certificates
		WHERE issuer = ?
		ORDER BY issued_at DESC, id DESC
		LIMIT ?`

	return r.list(query, issuer, limit)
}

// List lists the most recent issuance records
func (r *CertRepository) List(limit int) ([]*models.IssuanceRecord, error) {
	query := `SELECT ` + issuanceColumns + `
		FROM issued_certificates
		ORDER BY issued_at DESC, id DESC
		LIMIT ?`

	return r.list(query, limit)
}

func (r *CertRepository) list(query string, args ...interface{}) ([]*models.IssuanceRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuance records: %w", err)
	}
	defer rows.Close()

	var recs []*models.IssuanceRecord
	for rows.Next() {
		rec, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issuance record: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssuance(row rowScanner) (*models.IssuanceRecord, error) {
	rec := &models.IssuanceRecord{}
	var metadataURL, salt, clientIP sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.Hash,
		&rec.RecipientName,
		&rec.CourseName,
		&rec.IPFSURL,
		&metadataURL,
		&rec.HashMode,
		&salt,
		&rec.TxHash,
		&rec.Issuer,
		&clientIP,
		&rec.IssuedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.MetadataURL = metadataURL.String
	rec.Salt = salt.String
	rec.ClientIP = clientIP.String

	return rec, nil
}
