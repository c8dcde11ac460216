package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adamscao/certledger/internal/models"
)

// AuditRepository handles audit log data access
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (timestamp, action, actor, client_ip, user_agent, success, error_msg, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if log.Success {
		success = 1
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}

	result, err := r.db.Exec(query,
		log.Timestamp,
		log.Action,
		log.Actor,
		log.ClientIP,
		log.UserAgent,
		success,
		log.ErrorMsg,
		log.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	log.ID = id

	return nil
}

// List lists audit logs with optional filters
func (r *AuditRepository) List(actor string, action string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, timestamp, action, actor, client_ip, user_agent, success, error_msg, details
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}

	if actor != "" {
		query += " AND actor = ?"
		args = append(args, actor)
	}

	if action != "" {
		query += " AND action = ?"
		args = append(args, action)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return r.query(query, args...)
}

// ListFailedLogins lists failed admin login attempts since the given time
func (r *AuditRepository) ListFailedLogins(since time.Time, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, timestamp, action, actor, client_ip, user_agent, success, error_msg, details
		FROM audit_logs
		WHERE action = ? AND success = 0 AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	return r.query(query, models.ActionAdminLogin, since.UTC(), limit)
}

// CountByAction counts audit logs by action type
func (r *AuditRepository) CountByAction(action string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_logs
		WHERE action = ? AND timestamp >= ?
	`

	var count int
	err := r.db.QueryRow(query, action, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	return count, nil
}

// DeleteOld deletes audit logs older than the given date
func (r *AuditRepository) DeleteOld(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM audit_logs WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return count, nil
}

func (r *AuditRepository) query(query string, args ...interface{}) ([]*models.AuditLog, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog

	for rows.Next() {
		log := &models.AuditLog{}
		var success int
		var actor, userAgent, errorMsg, details sql.NullString

		err := rows.Scan(
			&log.ID,
			&log.Timestamp,
			&log.Action,
			&actor,
			&log.ClientIP,
			&userAgent,
			&success,
			&errorMsg,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		log.Success = success == 1
		log.Actor = actor.String
		log.UserAgent = userAgent.String
		log.ErrorMsg = errorMsg.String
		log.Details = details.String

		logs = append(logs, log)
	}

	return logs, rows.Err()
}
