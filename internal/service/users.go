// Package service contains the user administration and system settings
// logic served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/auth"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
}

// UserService manages user accounts on behalf of administrators.
type UserService struct {
	users             store.UserRepository
	roles             store.RoleRepository
	hasher            auth.Hasher
	defaultRoleKey    string
	superAdminRoleKey string
}

// NewUserService creates a UserService. Users holding superAdminRoleKey
// cannot be deleted or disabled.
func NewUserService(users store.UserRepository, roles store.RoleRepository, hasher auth.Hasher, defaultRoleKey, superAdminRoleKey string) *UserService {
	return &UserService{
		users:             users,
		roles:             roles,
		hasher:            hasher,
		defaultRoleKey:    defaultRoleKey,
		superAdminRoleKey: superAdminRoleKey,
	}
}

// List returns a filtered, sorted page of users. Rows and total are
// queried concurrently.
func (s *UserService) List(ctx context.Context, p ListParams) (*Page[models.User], error) {
	page := p.Page
	if page < 1 {
		page = defaultPage
	}
	limit := p.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		return nil, apperr.BadRequest("limit must not exceed %d", maxLimit)
	}

	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, apperr.BadRequest("cannot sort by %q", sortBy)
	}
	var desc bool
	switch p.SortOrder {
	case "", "desc":
		desc = true
	case "asc":
	default:
		return nil, apperr.BadRequest("sort order must be asc or desc")
	}

	filter := store.UserFilter{Search: p.Search, RoleKey: p.RoleKey, Status: p.Status}
	query := store.UserQuery{
		UserFilter: filter,
		Offset:     (page - 1) * limit,
		Limit:      limit,
		OrderBy:    column,
		Desc:       desc,
	}

	var (
		users []models.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.users.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := NewPage(users, total, page, limit)
	return &result, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// Create creates a user. Without a role the default role is used.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	var role *models.Role
	if in.RoleID == nil {
		r, err := s.roles.FindByKey(ctx, s.defaultRoleKey)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Misconfigured("default role %s is not configured", s.defaultRoleKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load default role: %w", err)
		}
		role = r
	} else {
		r, err := s.role(ctx, *in.RoleID)
		if err != nil {
			return nil, err
		}
		role = r
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Phone:        in.Phone,
		Avatar:       in.Avatar,
		Gender:       in.Gender,
		Birthday:     in.Birthday,
		Address:      in.Address,
		Bio:          in.Bio,
		RoleID:       role.ID,
		Status:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Role = role

	slog.Info("User created", "user_id", user.ID, "role", role.Key)
	return user, nil
}

// Update applies a partial update. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
			fields["email"] = email
		}
	}
	if in.RoleID != nil {
		if _, err := s.role(ctx, *in.RoleID); err != nil {
			return nil, err
		}
		fields["role_id"] = *in.RoleID
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Status != nil {
		if !*in.Status && user.RoleKey() == s.superAdminRoleKey {
			return nil, apperr.Conflict("cannot disable super admin user")
		}
		fields["status"] = *in.Status
	}
	setIfPresent(fields, "phone", in.Phone)
	setIfPresent(fields, "avatar", in.Avatar)
	setIfPresent(fields, "gender", in.Gender)
	setIfPresent(fields, "address", in.Address)
	setIfPresent(fields, "bio", in.Bio)
	if in.Birthday != nil {
		fields["birthday"] = *in.Birthday
	}

	if err := s.users.Update(ctx, id, fields); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already exists")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.Get(ctx, id)
}

// ToggleStatus flips the enabled flag. Super administrators cannot be disabled.
func (s *UserService) ToggleStatus(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.RoleKey() == s.superAdminRoleKey {
		return nil, apperr.Conflict("cannot disable super admin user")
	}

	if err := s.users.Update(ctx, id, map[string]any{"status": !user.Status}); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	slog.Info("User status changed", "user_id", id, "status", !user.Status)
	return s.Get(ctx, id)
}

// Delete removes a user. Super administrators cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.RoleKey() == s.superAdminRoleKey {
		return apperr.Conflict("cannot delete super admin user")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	slog.Info("User deleted", "user_id", id)
	return nil
}

// Count returns the number of users.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx, store.UserFilter{})
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return apperr.Conflict("email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up email: %w", err)
	}
	return nil
}

func (s *UserService) role(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("invalid role ID")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	return role, nil
}

func setIfPresent(fields map[string]any, column string, v *string) {
	if v != nil {
		fields[column] = *v
	}
}
