package user

import (
	"time"

	domain "github.com/example/storefront/domain/user"
)

// RegisterRequest is the request for the register service.
type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates by email or username.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// TokenResponse carries a token pair and the authenticated user.
type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	TokenType    string        `json:"token_type"`
	User         *UserResponse `json:"user,omitempty"`
}

// RefreshRequest is the request for the refresh-token service.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidateTokenRequest is the request for the validate-token service.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse reports the identity behind a valid token. Invalid
// tokens are reported in the response rather than as a service error.
type ValidateTokenResponse struct {
	Valid  bool        `json:"valid"`
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// GetUserRequest is the request for the get-user service.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Surname   string               `json:"surname"`
	Username  string               `json:"username"`
	Email     string               `json:"email"`
	Role      domain.Role          `json:"role"`
	Status    domain.AccountStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ListUsersRequest is the request for the list-users service.
type ListUsersRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ListUsersResponse is a page of users.
type ListUsersResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// UpdateUserRequest is the request for the update-user service.
type UpdateUserRequest struct {
	Actor    domain.Claims `json:"actor"`
	UserID   string        `json:"user_id"`
	Name     *string       `json:"name,omitempty"`
	Surname  *string       `json:"surname,omitempty"`
	Username *string       `json:"username,omitempty"`
	Email    *string       `json:"email,omitempty"`
	Role     *domain.Role  `json:"role,omitempty"`
}

// ChangePasswordRequest is the request for the change-password service.
type ChangePasswordRequest struct {
	Actor           domain.Claims `json:"actor"`
	UserID          string        `json:"user_id"`
	CurrentPassword string        `json:"current_password"`
	NewPassword     string        `json:"new_password"`
}

// DeactivateUserRequest is the request for the deactivate-user service.
type DeactivateUserRequest struct {
	Actor  domain.Claims `json:"actor"`
	UserID string        `json:"user_id"`
}

// AckResponse acknowledges a command without payload.
type AckResponse struct {
	OK bool `json:"ok"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Surname:   u.Surname,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTokenResponse(t *domain.TokenPair, u *domain.User) TokenResponse {
	resp := TokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
	}
	if u != nil {
		ur := toUserResponse(u)
		resp.User = &ur
	}
	return resp
}
