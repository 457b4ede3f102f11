package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
)

// ConfigService reads and writes JSON-valued system settings.
type ConfigService struct {
	configs store.ConfigRepository
}

func NewConfigService(configs store.ConfigRepository) *ConfigService {
	return &ConfigService{configs: configs}
}

// Get returns the value stored under key, or nil when the key is unset.
func (s *ConfigService) Get(ctx context.Context, key string) (json.RawMessage, error) {
	cfg, err := s.configs.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", key, err)
	}
	return json.RawMessage(cfg.Value), nil
}

// Set stores value under key, replacing any previous value.
func (s *ConfigService) Set(ctx context.Context, in SetConfigInput) (*ConfigEntry, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return nil, apperr.BadRequest("config key is required")
	}
	if !json.Valid(in.Value) {
		return nil, apperr.BadRequest("config value must be valid JSON")
	}

	cfg := &models.SystemConfig{Key: key, Value: string(in.Value), Description: in.Description}
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config %s: %w", key, err)
	}
	saved, err := s.configs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to reload config %s: %w", key, err)
	}
	entry := toEntry(*saved)
	return &entry, nil
}

// All returns every stored setting.
func (s *ConfigService) All(ctx context.Context) ([]ConfigEntry, error) {
	cfgs, err := s.configs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	entries := make([]ConfigEntry, 0, len(cfgs))
	for _, c := range cfgs {
		entries = append(entries, toEntry(c))
	}
	return entries, nil
}

func toEntry(c models.SystemConfig) ConfigEntry {
	return ConfigEntry{
		Key:         c.Key,
		Value:       json.RawMessage(c.Value),
		Description: c.Description,
		UpdatedAt:   c.UpdatedAt,
	}
}
