package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is an atomic capability identified by "resource:action".
type Permission struct {
	ID          uuid.UUID `gorm:"type:text;primary_key" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Key         string    `gorm:"uniqueIndex;not null" json:"key"`
	Resource    string    `gorm:"not null;index" json:"resource"`
	Action      string    `gorm:"not null" json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission is a grant edge. The composite primary key makes each
// (role, permission) pair unique.
type RolePermission struct {
	RoleID       uuid.UUID  `gorm:"type:text;primaryKey" json:"role_id"`
	PermissionID uuid.UUID  `gorm:"type:text;primaryKey;index" json:"permission_id"`
	Permission   Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
