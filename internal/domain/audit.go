package domain

import "time"

// AuditAction is the enumerated action recorded for every audited event.
type AuditAction string

const (
	ActionUserLogin      AuditAction = "USER_LOGIN"
	ActionUserLogout     AuditAction = "USER_LOGOUT"
	ActionUserRegister   AuditAction = "USER_REGISTER"
	ActionUserUpdate     AuditAction = "USER_UPDATE"
	ActionDataEncrypt    AuditAction = "DATA_ENCRYPT"
	ActionDataDecrypt    AuditAction = "DATA_DECRYPT"
	ActionKeyGenerate    AuditAction = "KEY_GENERATE"
	ActionKeyRevoke      AuditAction = "KEY_REVOKE"
	ActionKeyBackup      AuditAction = "KEY_BACKUP"
	ActionKeyRestore     AuditAction = "KEY_RESTORE"
	ActionAnomalyDetected AuditAction = "ANOMALY_DETECTED"
	ActionAlertsCleared  AuditAction = "ALERTS_CLEARED"

	// The remaining actions cover read-only operations that have no
	// mutating counterpart above but still pass through the policy guard
	// and so still need a denied-action label for FAILED audit entries.
	ActionKeyList        AuditAction = "KEY_LIST"
	ActionOperationsQuery AuditAction = "OPERATIONS_QUERY"
	ActionAuditQuery     AuditAction = "AUDIT_QUERY"
	ActionAlertsQuery    AuditAction = "ALERTS_QUERY"
)

// AuditStatus is the outcome recorded for an audit entry.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditFailed  AuditStatus = "FAILED"
	AuditWarning AuditStatus = "WARNING"
)

// AuditRecord is an immutable, totally ordered audit log entry.
type AuditRecord struct {
	ID            int64
	Actor         *int64
	Action        AuditAction
	Resource      *string
	Status        AuditStatus
	ClientAddress *string
	ClientAgent   *string
	Details       map[string]any
	Timestamp     time.Time
}

// AuditFilter is an equality filter set for AuditRecorder.Query/Count.
type AuditFilter struct {
	Actor  *int64
	Action *AuditAction
	Status *AuditStatus
}
