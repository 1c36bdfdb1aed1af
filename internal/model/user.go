package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LockoutForever is the lockout end used when an administrator locks a user.
var LockoutForever = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// User is an identity store account.
type User struct {
	Base
	UserName           string     `json:"username" db:"username"`
	NormalizedUserName string     `json:"-" db:"normalized_username"`
	Email              string     `json:"email" db:"email"`
	NormalizedEmail    string     `json:"-" db:"normalized_email"`
	Phone              string     `json:"phone" db:"phone"`
	FullName           string     `json:"fullname" db:"fullname"`
	NickName           string     `json:"nickname" db:"nickname"`
	Image              string     `json:"image" db:"image"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	SecurityStamp      string     `json:"-" db:"security_stamp"`
	LockoutEnabled     bool       `json:"lockout_enabled" db:"lockout_enabled"`
	LockoutEnd         *time.Time `json:"lockout_end" db:"lockout_end"`
}

// IsLockedOut reports whether the account is locked at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Normalize fills the normalized lookup keys.
func (u *User) Normalize() {
	u.NormalizedUserName = NormalizeKey(u.UserName)
	u.NormalizedEmail = NormalizeKey(u.Email)
}

// NormalizeKey is how user names, emails and role names are compared.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Sort keys accepted by UserQuery.
const (
	SortUserName  = "username"
	SortEmail     = "email"
	SortCreatedAt = "created_at"
)

// UserQuery filters the user list.
type UserQuery struct {
	Pagination
	Search string `form:"search"`
	Sort   string `form:"sort" binding:"omitempty,oneof=username -username email -email created_at -created_at"`
	Locked *bool  `form:"locked"`
}

// SortField returns the sort key and whether it is descending.
func (q UserQuery) SortField() (string, bool) {
	if q.Sort == "" {
		return SortUserName, false
	}
	if strings.HasPrefix(q.Sort, "-") {
		return q.Sort[1:], true
	}
	return q.Sort, false
}

type CreateUserRequest struct {
	UserName       string     `json:"username" binding:"required"`
	Email          string     `json:"email" binding:"required,email"`
	Password       string     `json:"password" binding:"required"`
	Roles          []string   `json:"roles"`
	LockoutEnabled bool       `json:"lockout_enable"`
	LockoutEnd     *time.Time `json:"lockout_end"`
}

// UpdateUserRequest changes only the fields that are present.
type UpdateUserRequest struct {
	Email          *string    `json:"email" binding:"omitempty,email"`
	LockoutEnabled *bool      `json:"lockout_enable"`
	LockoutEnd     *time.Time `json:"lockout_end"`
	Image          *string    `json:"image"`
	Phone          *string    `json:"phone"`
	FullName       *string    `json:"fullname"`
	NickName       *string    `json:"nickname"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type ResetPasswordResponse struct {
	Password string `json:"password"`
}

type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserName       string     `json:"username"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	FullName       string     `json:"fullname"`
	NickName       string     `json:"nickname"`
	Image          string     `json:"image"`
	LockoutEnabled bool       `json:"lockout_enable"`
	LockoutEnd     *time.Time `json:"lockout_end"`
	Locked         bool       `json:"locked"`
	Roles          []string   `json:"roles"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewUserResponse(u *User, roles []string, now time.Time) *UserResponse {
	if roles == nil {
		roles = []string{}
	}
	return &UserResponse{
		ID:             u.ID,
		UserName:       u.UserName,
		Email:          u.Email,
		Phone:          u.Phone,
		FullName:       u.FullName,
		NickName:       u.NickName,
		Image:          u.Image,
		LockoutEnabled: u.LockoutEnabled,
		LockoutEnd:     u.LockoutEnd,
		Locked:         u.IsLockedOut(now),
		Roles:          roles,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
