package domain

import "time"

// Audit actions recorded by the access services.
const (
	AuditGrantCommand     = "GRANT_COMMAND"
	AuditGrantGroup       = "GRANT_GROUP"
	AuditRevokeCommand    = "REVOKE_COMMAND"
	AuditRevokeGroup      = "REVOKE_GROUP"
	AuditPurgePrincipal   = "PURGE_PRINCIPAL"
	AuditSetPermission    = "SET_PERMISSION"
	AuditRemovePermission = "REMOVE_PERMISSION"
	AuditSetAdmin         = "SET_ADMIN"
	AuditUnsetAdmin       = "UNSET_ADMIN"
	AuditDeleteCommand    = "DELETE_COMMAND"
	AuditDeleteGroup      = "DELETE_GROUP"
	AuditStateTransition  = "STATE_TRANSITION"
)

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID        string
	Principal string
	Action    string
	Target    string
	Detail    string
	CreatedAt time.Time
}

// AuditFilter holds filter parameters for querying audit logs.
type AuditFilter struct {
	Principal *string
	Action    *string
	Limit     int
	Offset    int
}
