// Package user provides identity and access: accounts, credentials, JWT tokens
// and roles.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/domain/page"
	"github.com/example/storefront/modules/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Config holds the user module settings.
type Config struct {
	JWT           JWTConfig
	BcryptCost    int
	AdminEmail    string
	AdminPassword string
}

// UserModule provides account services.
type UserModule struct {
	config  Config
	db      *database.PluginModule
	service *UserService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*UserModule)(nil)
	_ mono.ServiceProviderModule = (*UserModule)(nil)
	_ mono.UsePluginModule       = (*UserModule)(nil)
	_ mono.HealthCheckableModule = (*UserModule)(nil)
)

// NewModule creates a new UserModule.
func NewModule(config Config, logger types.Logger) *UserModule {
	return &UserModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *UserModule) Name() string {
	return "user"
}

// SetPlugin receives the database plugin.
func (m *UserModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "db" {
		return
	}
	db, ok := plugin.(*database.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for db", "alias", alias, "expected", "*database.PluginModule")
		return
	}
	m.db = db
}

// Start builds the service and seeds the admin account when configured.
func (m *UserModule) Start(ctx context.Context) error {
	if m.db == nil || m.db.DB() == nil {
		return errors.New("required plugin 'db' not registered")
	}

	m.service = NewUserService(
		NewUserRepository(m.db.DB()),
		NewPasswordHasher(m.config.BcryptCost),
		NewJWTManager(m.config.JWT),
	)

	if m.config.AdminEmail != "" && m.config.AdminPassword != "" {
		admin, created, err := m.service.EnsureAdmin(ctx, m.config.AdminEmail, m.config.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to seed admin account: %w", err)
		}
		if created {
			m.logger.Info("Admin account created", "user_id", admin.ID, "email", admin.Email)
		}
	}

	m.logger.Info("User module started")
	return nil
}

// Stop shuts down the module.
func (m *UserModule) Stop(_ context.Context) error {
	m.logger.Info("User module stopped")
	return nil
}

// Health reports whether the module is ready.
func (m *UserModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Service returns the underlying service. It is nil before Start.
func (m *UserModule) Service() *UserService {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *UserModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(container, "register", json.Unmarshal, json.Marshal, m.handleRegister); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "login", json.Unmarshal, json.Marshal, m.handleLogin); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "list-users", json.Unmarshal, json.Marshal, m.handleListUsers); err != nil {
		return fmt.Errorf("failed to register list-users service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "update-user", json.Unmarshal, json.Marshal, m.handleUpdateUser); err != nil {
		return fmt.Errorf("failed to register update-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "change-password", json.Unmarshal, json.Marshal, m.handleChangePassword); err != nil {
		return fmt.Errorf("failed to register change-password service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(container, "deactivate-user", json.Unmarshal, json.Marshal, m.handleDeactivateUser); err != nil {
		return fmt.Errorf("failed to register deactivate-user service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "register, login, refresh-token, validate-token, get-user, list-users, update-user, change-password, deactivate-user")
	return nil
}

func (m *UserModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (UserResponse, error) {
	u, err := m.service.Register(ctx, RegisterInput(req))
	if err != nil {
		return UserResponse{}, err
	}
	m.logger.Info("User registered", "user_id", u.ID)
	return toUserResponse(u), nil
}

func (m *UserModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, u, err := m.service.Login(ctx, req.Login, req.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	return toTokenResponse(tokens, u), nil
}

func (m *UserModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	return toTokenResponse(tokens, nil), nil
}

func (m *UserModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		// Validation failures are a normal response, not a service error.
		return ValidateTokenResponse{Valid: false, Error: errMsg}, nil
	}
	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

func (m *UserModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserResponse, error) {
	u, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(u), nil
}

func (m *UserModule) handleListUsers(ctx context.Context, req ListUsersRequest, _ *mono.Msg) (ListUsersResponse, error) {
	offset, limit := page.Normalize(req.Offset, req.Limit)
	users, total, err := m.service.ListUsers(ctx, offset, limit)
	if err != nil {
		return ListUsersResponse{}, err
	}
	resp := ListUsersResponse{
		Users:  make([]UserResponse, 0, len(users)),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
	for i := range users {
		resp.Users = append(resp.Users, toUserResponse(&users[i]))
	}
	return resp, nil
}

func (m *UserModule) handleUpdateUser(ctx context.Context, req UpdateUserRequest, _ *mono.Msg) (UserResponse, error) {
	u, err := m.service.UpdateProfile(ctx, req.Actor, req.UserID, ProfileUpdate{
		Name:     req.Name,
		Surname:  req.Surname,
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(u), nil
}

func (m *UserModule) handleChangePassword(ctx context.Context, req ChangePasswordRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.service.ChangePassword(ctx, req.Actor, req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return AckResponse{}, err
	}
	return AckResponse{OK: true}, nil
}

func (m *UserModule) handleDeactivateUser(ctx context.Context, req DeactivateUserRequest, _ *mono.Msg) (AckResponse, error) {
	if err := m.service.Deactivate(ctx, req.Actor, req.UserID); err != nil {
		return AckResponse{}, err
	}
	m.logger.Info("User deactivated", "user_id", req.UserID, "by", req.Actor.UserID)
	return AckResponse{OK: true}, nil
}
