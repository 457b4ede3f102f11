package store

import (
	"context"
	"fmt"

	"github.com/donhauser001/dongui/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// byResource orders permissions by resource, then key. The key column is
// quoted by the clause since it is a reserved word in some dialects.
var byResource = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Table: "permissions", Name: "resource"}},
	{Column: clause.Column{Table: "permissions", Name: "key"}},
}}

// PermissionStore implements PermissionRepository with GORM.
type PermissionStore struct {
	db *gorm.DB
}

var _ PermissionRepository = (*PermissionStore)(nil)

// List returns every permission grouped by resource.
func (s *PermissionStore) List(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Order(byResource).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// FindByRole returns the permissions granted to a role.
func (s *PermissionStore) FindByRole(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order(byResource).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// ReplaceGrants deletes every grant of the role and inserts the new set in a
// single transaction. Concurrent readers observe either the old or the new
// set. Unknown permission IDs abort the transaction with ErrUnknownPermission.
func (s *PermissionStore) ReplaceGrants(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	ids := dedupe(permissionIDs)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			var found int64
			if err := tx.Model(&models.Permission{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
				return err
			}
			if found != int64(len(ids)) {
				return fmt.Errorf("%w: %d of %d ids do not exist", ErrUnknownPermission, int64(len(ids))-found, len(ids))
			}
		}

		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		grants := make([]models.RolePermission, 0, len(ids))
		for _, id := range ids {
			grants = append(grants, models.RolePermission{RoleID: roleID, PermissionID: id})
		}
		return tx.Omit(clause.Associations).Create(&grants).Error
	})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
