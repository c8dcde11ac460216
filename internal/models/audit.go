package models

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	Details   string    `json:"details,omitempty"` // JSON
}

// Audit action constants
const (
	ActionAdminLogin      = "admin_login"
	ActionIssuerRegister  = "issuer_register"
	ActionIssuerApprove   = "issuer_approve"
	ActionIssuerRemove    = "issuer_remove"
	ActionCertIssue       = "cert_issue"
	ActionCertRevoke      = "cert_revoke"
	ActionCertVerify      = "cert_verify"
	ActionDepositWithdraw = "deposit_withdraw"
)
