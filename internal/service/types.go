package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ListParams holds the user listing query.
type ListParams struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=createdAt updatedAt name email"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Search    string `form:"search"`
	RoleKey   string `form:"roleKey"`
	Status    *bool  `form:"status"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPage computes the paging metadata for items.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// CreateUserInput holds parameters for creating a user. A nil RoleID
// selects the default role.
type CreateUserInput struct {
	Email    string     `json:"email" binding:"required,email"`
	Name     string     `json:"name" binding:"required,min=2"`
	Password string     `json:"password" binding:"required,min=8,password"`
	Phone    string     `json:"phone"`
	RoleID   *uuid.UUID `json:"roleId"`
	Avatar   string     `json:"avatar"`
	Gender   string     `json:"gender" binding:"omitempty,oneof=male female other"`
	Birthday *time.Time `json:"birthday"`
	Address  string     `json:"address"`
	Bio      string     `json:"bio"`
}

// UpdateUserInput is a partial user update; nil fields are left unchanged.
type UpdateUserInput struct {
	Email    *string    `json:"email" binding:"omitempty,email"`
	Name     *string    `json:"name" binding:"omitempty,min=2"`
	Password *string    `json:"password" binding:"omitempty,min=8,password"`
	Phone    *string    `json:"phone"`
	RoleID   *uuid.UUID `json:"roleId"`
	Avatar   *string    `json:"avatar"`
	Status   *bool      `json:"status"`
	Gender   *string    `json:"gender" binding:"omitempty,oneof=male female other"`
	Birthday *time.Time `json:"birthday"`
	Address  *string    `json:"address"`
	Bio      *string    `json:"bio"`
}

// ConfigEntry is a system setting with its decoded JSON value.
type ConfigEntry struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SetConfigInput is the body of a config write.
type SetConfigInput struct {
	Key         string          `json:"key" binding:"required"`
	Value       json.RawMessage `json:"value" binding:"required"`
	Description string          `json:"description"`
}
