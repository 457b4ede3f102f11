// Package store provides the repository contracts the authorization core
// depends on, and their GORM implementations.
package store

import (
	"context"
	"errors"

	"github.com/donhauser001/dongui/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownPermission is returned when a grant references a permission that does not exist.
	ErrUnknownPermission = errors.New("unknown permission")
)

// UserRepository is the credential store.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q UserQuery) ([]models.User, error)
	Count(ctx context.Context, f UserFilter) (int64, error)
}

// RoleRepository stores roles and answers membership counts.
type RoleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindByKey(ctx context.Context, key string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error)
}

// PermissionRepository stores permissions and the role grant edges.
type PermissionRepository interface {
	List(ctx context.Context) ([]models.Permission, error)
	FindByRole(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error)
	// ReplaceGrants atomically swaps the role's grant set for permissionIDs.
	ReplaceGrants(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
}

// Store bundles the GORM-backed repositories over one database handle.
type Store struct {
	db          *gorm.DB
	Users       *UserStore
	Roles       *RoleStore
	Permissions *PermissionStore
	Configs     *ConfigStore
}

// New creates a Store over an already-migrated database.
func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       &UserStore{db: db},
		Roles:       &RoleStore{db: db},
		Permissions: &PermissionStore{db: db},
		Configs:     &ConfigStore{db: db},
	}
}

// DB returns the underlying GORM DB for advanced queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
