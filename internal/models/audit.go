package models

import "time"

// AuditAction identifies the kind of action an audit log entry records.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditActionUserCreate     AuditAction = "USER_CREATE"
	AuditActionUserUpdate     AuditAction = "USER_UPDATE"
	AuditActionUserDelete     AuditAction = "USER_DELETE"
	AuditActionConfigUpdate   AuditAction = "CONFIG_UPDATE"
)

// AuditLog is a single recorded administrative action, kept for
// accountability over sign-ins, password changes, user management and
// configuration updates.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte      `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string      `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
