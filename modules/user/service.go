package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/example/storefront/domain/apperror"
	domain "github.com/example/storefront/domain/user"
	"github.com/google/uuid"
)

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
}

// ProfileUpdate holds optional profile changes. Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string
	Surname  *string
	Username *string
	Email    *string
	Role     *domain.Role
}

// UserService handles accounts, credentials and tokens.
type UserService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewUserService creates a new UserService.
func NewUserService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a client account. Self-registration never grants admin.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleClient)
}

// EnsureAdmin creates an admin account with the given credentials unless a
// user with that email already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, bool, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, apperror.Internal("failed to look up admin account", err)
	}

	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	u, err := s.create(ctx, RegisterInput{
		Name:     "Administrator",
		Username: username,
		Email:    email,
		Password: password,
	}, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.New(apperror.KindInvalidInput, "invalid email format")
	}
	if in.Username == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "username is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, in.Email, in.Username)
	if err != nil {
		return nil, apperror.Internal("failed to check account existence", err)
	}
	if exists {
		return nil, apperror.New(apperror.KindConflict, ErrUserExists.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	now := time.Now()
	u := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, apperror.New(apperror.KindConflict, ErrUserExists.Error())
		}
		return nil, apperror.Internal("failed to create user", err)
	}
	return u, nil
}

// Login authenticates by email or username and returns a token pair.
func (s *UserService) Login(ctx context.Context, login, password string) (*domain.TokenPair, *domain.User, error) {
	u, err := s.repo.FindByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, apperror.New(apperror.KindUnauthorized, "invalid credentials")
		}
		return nil, nil, apperror.Internal("failed to find user", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, nil, apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}
	if !u.IsActive() {
		return nil, nil, apperror.New(apperror.KindUnauthorized, "account is deactivated")
	}

	tokens, err := s.jwt.IssuePair(u)
	if err != nil {
		return nil, nil, apperror.Internal("failed to issue tokens", err)
	}
	return tokens, u, nil
}

// RefreshTokens exchanges a refresh token for a new pair, picking up role
// changes made since the refresh token was issued.
func (s *UserService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnauthorized, "invalid refresh token", err)
	}
	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.jwt.IssuePair(u)
	if err != nil {
		return nil, apperror.Internal("failed to issue tokens", err)
	}
	return tokens, nil
}

// ValidateToken validates an access token and returns the caller identity.
func (s *UserService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, apperror.Internal("failed to find user", err)
	}
	return u, nil
}

// ListUsers returns a page of active users.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	users, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, apperror.Internal("failed to list users", err)
	}
	return users, total, nil
}

// UpdateProfile applies changes to a user. Clients may only update
// themselves and only admins may change roles.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Claims, userID string, upd ProfileUpdate) (*domain.User, error) {
	if err := authorizeSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Surname != nil {
		u.Surname = strings.TrimSpace(*upd.Surname)
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return nil, apperror.New(apperror.KindInvalidInput, "username is required")
		}
		u.Username = username
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.New(apperror.KindInvalidInput, "invalid email format")
		}
		u.Email = email
	}
	if upd.Role != nil {
		if !actor.IsAdmin() {
			return nil, apperror.New(apperror.KindForbidden, "only administrators can change roles")
		}
		if !upd.Role.IsValid() {
			return nil, apperror.New(apperror.KindInvalidInput, "role must be ADMIN_ROLE or CLIENT_ROLE")
		}
		u.Role = *upd.Role
	}

	u.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, apperror.New(apperror.KindConflict, ErrUserExists.Error())
		}
		return nil, apperror.Internal("failed to update user", err)
	}
	return u, nil
}

// ChangePassword replaces a password. Users changing their own password must
// present the current one; admins resetting another account do not.
func (s *UserService) ChangePassword(ctx context.Context, actor domain.Claims, userID, current, next string) error {
	if err := authorizeSelfOrAdmin(actor, userID); err != nil {
		return err
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if actor.UserID == userID && !s.hasher.Verify(current, u.PasswordHash) {
		return apperror.New(apperror.KindUnauthorized, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, u); err != nil {
		return apperror.Internal("failed to update password", err)
	}
	return nil
}

// Deactivate retires an account. Deactivated users can no longer log in and
// their existing tokens stop validating.
func (s *UserService) Deactivate(ctx context.Context, actor domain.Claims, userID string) error {
	if err := authorizeSelfOrAdmin(actor, userID); err != nil {
		return err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return apperror.New(apperror.KindInvalidState, "account already deactivated")
	}
	u.Status = domain.AccountDeactivated
	u.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, u); err != nil {
		return apperror.Internal("failed to deactivate user", err)
	}
	return nil
}

func (s *UserService) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperror.New(apperror.KindUnauthorized, "account no longer exists")
		}
		return nil, apperror.Internal("failed to find user", err)
	}
	if !u.IsActive() {
		return nil, apperror.New(apperror.KindUnauthorized, "account is deactivated")
	}
	return u, nil
}

func authorizeSelfOrAdmin(actor domain.Claims, userID string) error {
	if actor.IsAdmin() || actor.UserID == userID {
		return nil
	}
	return apperror.New(apperror.KindForbidden, "not allowed to manage another user")
}

func validatePassword(password string) error {
	// bcrypt ignores input beyond 72 bytes
	if len(password) < 8 {
		return apperror.New(apperror.KindInvalidInput, "password must be at least 8 characters")
	}
	if len(password) > 72 {
		return apperror.New(apperror.KindInvalidInput, "password must be at most 72 characters")
	}
	return nil
}
