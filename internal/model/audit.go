package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one administrative or self-service action.
type AuditEntry struct {
	ActorID    uuid.UUID `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	AuditActionCreate         = "create"
	AuditActionUpdate         = "update"
	AuditActionDelete         = "delete"
	AuditActionLock           = "lock"
	AuditActionUnlock         = "unlock"
	AuditActionResetPassword  = "reset_password"
	AuditActionChangePassword = "change_password"
	AuditActionGrantRole      = "grant_role"
	AuditActionRevokeRole     = "revoke_role"

	AuditEntityUser = "user"
	AuditEntityRole = "role"

	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// Actor identifies who performed a request.
type Actor struct {
	ID        uuid.UUID
	Name      string
	RequestID string
	IPAddress string
}
