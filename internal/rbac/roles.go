package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/google/uuid"
)

// CreateRoleRequest is the input for creating a role.
type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Description string `json:"description"`
}

// UpdateRoleRequest is a partial role update; nil fields are left unchanged.
type UpdateRoleRequest struct {
	Name        *string `json:"name"`
	Key         *string `json:"key"`
	Description *string `json:"description"`
}

// RoleManager creates, updates and deletes roles while protecting system
// roles and roles that still have members.
type RoleManager struct {
	roles store.RoleRepository
}

// NewRoleManager creates a role manager.
func NewRoleManager(roles store.RoleRepository) *RoleManager {
	return &RoleManager{roles: roles}
}

// FindAllRoles lists roles oldest first with member counts.
func (m *RoleManager) FindAllRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := m.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// FindRole returns one role with its member count.
func (m *RoleManager) FindRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := m.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.UserCount, err = m.roles.CountUsers(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to count role users: %w", err)
	}
	return role, nil
}

// CreateRole creates a non-system role. A duplicate key is a BadRequest.
func (m *RoleManager) CreateRole(ctx context.Context, req CreateRoleRequest) (*models.Role, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, apperr.BadRequest("role key is required")
	}
	if err := m.ensureKeyFree(ctx, key); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        strings.TrimSpace(req.Name),
		Key:         key,
		Description: req.Description,
		IsSystem:    false,
	}
	if err := m.roles.Create(ctx, role); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.BadRequest("role with key %q already exists", key)
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	slog.Info("Role created", "role_id", role.ID, "key", role.Key)
	return role, nil
}

// UpdateRole applies a partial update. Changing the key re-checks
// uniqueness. System role keys are fixed on purpose: route requirements and
// the seed refer to them by key.
func (m *RoleManager) UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*models.Role, error) {
	role, err := m.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Key != nil {
		key := strings.TrimSpace(*req.Key)
		if key == "" {
			return nil, apperr.BadRequest("role key is required")
		}
		if key != role.Key {
			if role.IsSystem {
				return nil, apperr.BadRequest("system role keys cannot be changed")
			}
			if err := m.ensureKeyFree(ctx, key); err != nil {
				return nil, err
			}
			fields["key"] = key
		}
	}

	if err := m.roles.Update(ctx, id, fields); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.BadRequest("role with key %q already exists", fields["key"])
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return m.find(ctx, id)
}

// DeleteRole removes a role. System roles and roles with members are refused.
func (m *RoleManager) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, err := m.find(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return apperr.BadRequest("system roles cannot be deleted")
	}

	count, err := m.roles.CountUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if count > 0 {
		return apperr.BadRequest("cannot delete role with %d users, reassign them first", count)
	}

	if err := m.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("role not found")
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}

	slog.Info("Role deleted", "role_id", id, "key", role.Key)
	return nil
}

func (m *RoleManager) find(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := m.roles.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}
	return role, nil
}

func (m *RoleManager) ensureKeyFree(ctx context.Context, key string) error {
	_, err := m.roles.FindByKey(ctx, key)
	if err == nil {
		return apperr.BadRequest("role with key %q already exists", key)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check role key: %w", err)
	}
	return nil
}
