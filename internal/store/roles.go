package store

import (
	"context"

	"github.com/donhauser001/dongui/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleStore implements RoleRepository with GORM.
type RoleStore struct {
	db *gorm.DB
}

var _ RoleRepository = (*RoleStore)(nil)

func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (s *RoleStore) FindByKey(ctx context.Context, key string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where(&models.Role{Key: key}).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// List returns all roles oldest first, each with its member count.
func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		RoleID uuid.UUID
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("role_id, COUNT(*) AS total").
		Group("role_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byRole := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byRole[c.RoleID] = c.Total
	}
	for i := range roles {
		roles[i].UserCount = byRole[roles[i].ID]
	}
	return roles, nil
}

func (s *RoleStore) Create(ctx context.Context, role *models.Role) error {
	return duplicate(s.db.WithContext(ctx).Create(role).Error)
}

func (s *RoleStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return duplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the role together with its grant edges.
func (s *RoleStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Role{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *RoleStore) CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}
