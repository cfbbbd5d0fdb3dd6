package user

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/storefront/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// UserPort is the identity and account API other modules use.
type UserPort interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*UserResponse, error)
	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	DeactivateUser(ctx context.Context, req DeactivateUserRequest) error
}

// UserAdapter implements UserPort using the service container.
type UserAdapter struct {
	container mono.ServiceContainer
}

var _ UserPort = (*UserAdapter)(nil)

// NewUserAdapter creates a new UserAdapter.
func NewUserAdapter(container mono.ServiceContainer) *UserAdapter {
	return &UserAdapter{
		container: container,
	}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// Register creates a client account.
func (a *UserAdapter) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var resp UserResponse
	if err := call(ctx, a.container, "register", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns tokens.
func (a *UserAdapter) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := call(ctx, a.container, "login", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges a refresh token.
func (a *UserAdapter) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp TokenResponse
	if err := call(ctx, a.container, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateToken validates an access token and returns the caller identity.
func (a *UserAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}
	return &domain.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
		Role:   resp.Role,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *UserAdapter) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	req := GetUserRequest{UserID: userID}
	var resp UserResponse
	if err := call(ctx, a.container, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUsers returns a page of users.
func (a *UserAdapter) ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	var resp ListUsersResponse
	if err := call(ctx, a.container, "list-users", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateUser applies profile changes.
func (a *UserAdapter) UpdateUser(ctx context.Context, req UpdateUserRequest) (*UserResponse, error) {
	var resp UserResponse
	if err := call(ctx, a.container, "update-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword replaces a password.
func (a *UserAdapter) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	var resp AckResponse
	return call(ctx, a.container, "change-password", &req, &resp)
}

// DeactivateUser retires an account.
func (a *UserAdapter) DeactivateUser(ctx context.Context, req DeactivateUserRequest) error {
	var resp AckResponse
	return call(ctx, a.container, "deactivate-user", &req, &resp)
}
