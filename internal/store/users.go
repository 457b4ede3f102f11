package store

import (
	"context"
	"strings"

	"github.com/donhauser001/dongui/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows user listings and counts.
type UserFilter struct {
	Search  string // case-insensitive substring of name or email
	RoleKey string
	Status  *bool
}

// UserQuery is a filtered, ordered page of users.
type UserQuery struct {
	UserFilter
	Offset  int
	Limit   int
	OrderBy string // column name, already validated by the caller
	Desc    bool
}

// UserStore implements UserRepository with GORM.
type UserStore struct {
	db *gorm.DB
}

var _ UserRepository = (*UserStore)(nil)

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return duplicate(s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

func (s *UserStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return duplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) List(ctx context.Context, q UserQuery) ([]models.User, error) {
	tx := s.filtered(ctx, q.UserFilter).Preload("Role")
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: "users", Name: q.OrderBy}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context, f UserFilter) (int64, error) {
	var count int64
	err := s.filtered(ctx, f).Count(&count).Error
	return count, err
}

func (s *UserStore) filtered(ctx context.Context, f UserFilter) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.User{})
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		tx = tx.Where("LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ?", pattern, pattern)
	}
	if f.RoleKey != "" {
		tx = tx.Where("users.role_id IN (?)", s.db.Model(&models.Role{}).Select("id").Where(&models.Role{Key: f.RoleKey}))
	}
	if f.Status != nil {
		tx = tx.Where("users.status = ?", *f.Status)
	}
	return tx
}
