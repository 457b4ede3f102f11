package models

import (
	"time"
)

// SystemConfig stores front-end and system settings as JSON values keyed by name.
type SystemConfig struct {
	Key         string    `gorm:"primarykey;not null" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
