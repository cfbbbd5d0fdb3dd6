package user

import (
	"time"
)

// Role grants access to privileged operations.
type Role string

const (
	RoleAdmin  Role = "ADMIN_ROLE"
	RoleClient Role = "CLIENT_ROLE"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive      AccountStatus = "active"
	AccountDeactivated AccountStatus = "deactivated"
)

// User represents a user entity in the system.
type User struct {
	ID           string        `gorm:"primaryKey;type:text"`
	Name         string        `gorm:"type:text"`
	Surname      string        `gorm:"type:text"`
	Username     string        `gorm:"uniqueIndex;not null;type:text"`
	Email        string        `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string        `gorm:"not null;type:text"`
	Role         Role          `gorm:"not null;type:text;default:CLIENT_ROLE"`
	Status       AccountStatus `gorm:"not null;type:text;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.Status == AccountActive
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims identifies the authenticated caller.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
