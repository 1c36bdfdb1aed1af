package model

// Identity event types published to the broker.
const (
	EventUserCreated         = "user.created"
	EventUserUpdated         = "user.updated"
	EventUserLocked          = "user.locked"
	EventUserUnlocked        = "user.unlocked"
	EventUserPasswordReset   = "user.password_reset"
	EventUserPasswordChanged = "user.password_changed"
	EventUserRoleGranted     = "user.role_granted"
	EventUserRoleRevoked     = "user.role_revoked"
	EventRoleCreated         = "role.created"
	EventRoleDeleted         = "role.deleted"
)

// UserEvent is the payload of user.* events. It never carries secrets.
type UserEvent struct {
	UserID   string `json:"user_id"`
	UserName string `json:"username"`
	Role     string `json:"role,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`
}

// RoleEvent is the payload of role.* events.
type RoleEvent struct {
	Name    string `json:"name"`
	ActorID string `json:"actor_id,omitempty"`
}
