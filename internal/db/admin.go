package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateDefaultAdmin creates a super administrator from ADMIN_EMAIL and
// ADMIN_PASSWORD when both are set and no users exist yet. ADMIN_NAME is
// optional. Seed must have run first so the super admin role exists.
func CreateDefaultAdmin(db *gorm.DB, cfg config.AuthConfig) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" || password == "" {
		slog.Info("No ADMIN_EMAIL or ADMIN_PASSWORD set, skipping default admin creation")
		return nil
	}
	if name == "" {
		name = "Administrator"
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		slog.Info("Users already exist, skipping default admin creation")
		return nil
	}

	_, err := CreateAdmin(db, cfg, email, name, password)
	return err
}

// CreateAdmin creates a user holding the super admin role. The email is
// stored trimmed and lowercased, the form login looks it up by.
func CreateAdmin(db *gorm.DB, cfg config.AuthConfig, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var role models.Role
	err := db.Where(&models.Role{Key: cfg.SuperAdminRoleKey}).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("role %s does not exist, run seed first", cfg.SuperAdminRoleKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role %s: %w", cfg.SuperAdminRoleKey, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		Status:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("Admin user created", "email", email, "role", role.Key)
	return &user, nil
}
