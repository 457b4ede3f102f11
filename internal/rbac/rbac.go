// Package rbac resolves permissions through the user → role → grant graph
// and guards the role lifecycle. Nothing is cached: every call reads the
// store so grant changes are visible immediately.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/google/uuid"
)

// Resolver answers permission questions for users and roles.
type Resolver struct {
	users store.UserRepository
	roles store.RoleRepository
	perms store.PermissionRepository
}

// NewResolver creates a permission resolver.
func NewResolver(users store.UserRepository, roles store.RoleRepository, perms store.PermissionRepository) *Resolver {
	return &Resolver{users: users, roles: roles, perms: perms}
}

// GetUserPermissions returns the permissions granted to the user's role.
// An unknown user resolves to an empty set.
func (r *Resolver) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]models.Permission, error) {
	user, err := r.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Permission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return r.FindPermissionsByRole(ctx, user.RoleID)
}

// CheckPermission reports whether the user's role grants permissionKey.
// Unknown users and unknown keys yield false.
func (r *Resolver) CheckPermission(ctx context.Context, userID uuid.UUID, permissionKey string) (bool, error) {
	perms, err := r.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Key == permissionKey {
			return true, nil
		}
	}
	return false, nil
}

// FindPermissionsByRole returns the role's grant set, empty for an unknown role.
func (r *Resolver) FindPermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	perms, err := r.perms.FindByRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return perms, nil
}

// FindAllPermissions lists every permission ordered by resource.
func (r *Resolver) FindAllPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := r.perms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// AssignPermissionsToRole replaces the role's grants with permissionIDs and
// returns the resulting set. The replacement is atomic.
func (r *Resolver) AssignPermissionsToRole(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) ([]models.Permission, error) {
	role, err := r.roles.FindByID(ctx, roleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	if err := r.perms.ReplaceGrants(ctx, role.ID, permissionIDs); err != nil {
		if errors.Is(err, store.ErrUnknownPermission) {
			return nil, apperr.BadRequest("unknown permission id")
		}
		return nil, fmt.Errorf("failed to replace grants: %w", err)
	}

	slog.Info("Role permissions replaced", "role", role.Key, "count", len(permissionIDs))
	return r.FindPermissionsByRole(ctx, role.ID)
}
