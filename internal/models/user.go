package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that can sign in to the admin system.
// PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID  `gorm:"type:text;primary_key" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"not null" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Phone        string     `json:"phone,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	Gender       string     `json:"gender,omitempty"` // "male", "female" or "other"
	Birthday     *time.Time `json:"birthday,omitempty"`
	Address      string     `json:"address,omitempty"`
	Bio          string     `gorm:"type:text" json:"bio,omitempty"`
	RoleID       uuid.UUID  `gorm:"type:text;not null;index" json:"role_id"`
	Role         *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Status       bool       `gorm:"not null;default:true" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleKey returns the key of the preloaded role, or "" when the role was not loaded.
func (u *User) RoleKey() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Key
}
