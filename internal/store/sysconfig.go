package store

import (
	"context"

	"github.com/donhauser001/dongui/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfigRepository stores system settings by key.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (*models.SystemConfig, error)
	Upsert(ctx context.Context, cfg *models.SystemConfig) error
	List(ctx context.Context) ([]models.SystemConfig, error)
}

// ConfigStore implements ConfigRepository with GORM.
type ConfigStore struct {
	db *gorm.DB
}

var _ ConfigRepository = (*ConfigStore)(nil)

func (s *ConfigStore) Get(ctx context.Context, key string) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	if err := s.db.WithContext(ctx).Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

// Upsert inserts the setting or overwrites its value and description.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *models.SystemConfig) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(cfg).Error
}

func (s *ConfigStore) List(ctx context.Context) ([]models.SystemConfig, error) {
	var cfgs []models.SystemConfig
	if err := s.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&cfgs).Error; err != nil {
		return nil, err
	}
	return cfgs, nil
}
