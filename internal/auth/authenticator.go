// Package auth implements token issuance, credential checks and the
// per-request authorization guard.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/metrics"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/google/uuid"
)

const msgInvalidCredentials = "invalid email or password"

// RegisterRequest represents a self-registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=8,password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login or registration response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Authenticator handles registration, login and profile lookups.
type Authenticator struct {
	users          store.UserRepository
	roles          store.RoleRepository
	hasher         Hasher
	tokens         *TokenManager
	defaultRoleKey string
	metrics        *metrics.Metrics
}

// NewAuthenticator creates an authenticator. Self-registered users receive
// the role with defaultRoleKey.
func NewAuthenticator(users store.UserRepository, roles store.RoleRepository, hasher Hasher, tokens *TokenManager, defaultRoleKey string, m *metrics.Metrics) *Authenticator {
	return &Authenticator{
		users:          users,
		roles:          roles,
		hasher:         hasher,
		tokens:         tokens,
		defaultRoleKey: defaultRoleKey,
		metrics:        m,
	}
}

// Register creates a user bound to the default role and issues a token.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := normalizeEmail(req.Email)

	if _, err := a.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	role, err := a.roles.FindByKey(ctx, a.defaultRoleKey)
	if errors.Is(err, store.ErrNotFound) {
		slog.Error("Default role is missing, run seed", "role", a.defaultRoleKey)
		return nil, apperr.Misconfigured("default role %s is not configured", a.defaultRoleKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load default role: %w", err)
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		RoleID:       role.ID,
		Status:       true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Role = role

	token, err := a.tokens.Issue(user.ID, user.Email, role.Key)
	if err != nil {
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	return &LoginResponse{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error; a disabled account is reported as such.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := a.ValidateCredentials(ctx, email, password)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			a.metrics.ObserveLogin(metrics.LoginFailed)
		}
		return nil, err
	}

	if !user.Status {
		slog.Warn("Login attempt on disabled account", "user_id", user.ID)
		a.metrics.ObserveLogin(metrics.LoginDisabled)
		return nil, apperr.Unauthorized("account is disabled", apperr.ReasonDisabled)
	}

	token, err := a.tokens.Issue(user.ID, user.Email, user.RoleKey())
	if err != nil {
		return nil, err
	}

	a.metrics.ObserveLogin(metrics.LoginSuccess)
	slog.Info("User logged in", "user_id", user.ID)
	return &LoginResponse{Token: token, User: user}, nil
}

// ValidateCredentials returns the user whose password matches. It does not
// look at the account status.
func (a *Authenticator) ValidateCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("Login attempt with unknown email")
		return nil, apperr.Unauthorized(msgInvalidCredentials, apperr.ReasonUnknownEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !a.hasher.Compare(user.PasswordHash, password) {
		slog.Warn("Login attempt with wrong password", "user_id", user.ID)
		return nil, apperr.Unauthorized(msgInvalidCredentials, apperr.ReasonBadPassword)
	}
	return user, nil
}

// GetProfile returns the current user. A user that vanished after the token
// was issued is reported as NotFound.
func (a *Authenticator) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
