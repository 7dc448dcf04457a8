package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"

	AuditActionRequestCreate     = "REQUEST_CREATE"
	AuditActionRequestTransition = "REQUEST_TRANSITION"
	AuditActionRequestItemAdd    = "REQUEST_ITEM_ADD"
	AuditActionRequestItemRemove = "REQUEST_ITEM_REMOVE"

	AuditActionWarehouseAssign     = "WAREHOUSE_ASSIGN"
	AuditActionWarehouseUnassign   = "WAREHOUSE_UNASSIGN"
	AuditActionWarehouseAccessEdit = "WAREHOUSE_ACCESS_EDIT"
	AuditActionDefaultWarehouseSet = "DEFAULT_WAREHOUSE_SET"
)

// Audit severities.
const (
	AuditSeverityInfo    = "INFO"
	AuditSeverityWarning = "WARNING"
	AuditSeverityError   = "ERROR"
)

// AuditLog represents an audit trail record. Every mutating operation writes
// one, on success and on failure alike.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	Resource     string    `db:"resource" json:"resource"`
	ResourceID   *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues    []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues    []byte    `db:"new_values" json:"new_values,omitempty"`
	Severity     string    `db:"severity" json:"severity"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
