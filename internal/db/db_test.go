package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/donhauser001/dongui/internal/auth"
	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := New(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func grantCount(t *testing.T, gdb *gorm.DB, roleKey string) int64 {
	t.Helper()
	var role models.Role
	if err := gdb.Where(&models.Role{Key: roleKey}).First(&role).Error; err != nil {
		t.Fatalf("find role %s: %v", roleKey, err)
	}
	var n int64
	gdb.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&n)
	return n
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

type captureWriter struct {
	strings.Builder
}

func (w *captureWriter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&w.Builder, format+"\n", args...)
}

func TestSQLLogOmitsBoundValues(t *testing.T) {
	var w captureWriter
	gdb, err := open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "log.db"),
		LogLevel: "debug",
	}, &w)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	seed, _ := LoadSeed()
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var role models.Role
	gdb.Where(&models.Role{Key: "STUDENT"}).First(&role)
	const digest = "$2a$04$do-not-log-this-digest"
	user := models.User{Email: "u@example.com", Name: "User", PasswordHash: digest, RoleID: role.ID, Status: true}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, "INSERT INTO") {
		t.Fatalf("expected statements in the debug log, got:\n%s", out)
	}
	if strings.Contains(out, digest) {
		t.Fatalf("SQL log contains the password digest:\n%s", out)
	}
}

func TestGormLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug": logger.Info,
		"info":  logger.Warn,
		"warn":  logger.Warn,
		"error": logger.Error,
		"":      logger.Silent,
	}
	for level, want := range tests {
		if got := gormLogLevel(level); got != want {
			t.Errorf("gormLogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestSeed(t *testing.T) {
	gdb := testDB(t)
	seed, err := LoadSeed()
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var roles []models.Role
	gdb.Find(&roles)
	if len(roles) != 4 {
		t.Fatalf("expected 4 roles, got %d", len(roles))
	}
	for _, r := range roles {
		if !r.IsSystem {
			t.Errorf("seeded role %s should be a system role", r.Key)
		}
	}

	var perms int64
	gdb.Model(&models.Permission{}).Count(&perms)
	if perms != 16 {
		t.Fatalf("expected 16 permissions, got %d", perms)
	}

	want := map[string]int64{"SUPER_ADMIN": 16, "ADMIN": 9, "TEACHER": 0, "STUDENT": 2}
	for key, n := range want {
		if got := grantCount(t, gdb, key); got != n {
			t.Errorf("%s grants = %d, want %d", key, got, n)
		}
	}
}

func TestSeed_KeepsAssignedGrants(t *testing.T) {
	gdb := testDB(t)
	seed, _ := LoadSeed()
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	// Revoke everything from STUDENT and grant TEACHER one permission.
	var student, teacher models.Role
	gdb.Where(&models.Role{Key: "STUDENT"}).First(&student)
	gdb.Where(&models.Role{Key: "TEACHER"}).First(&teacher)
	if err := gdb.Where("role_id = ?", student.ID).Delete(&models.RolePermission{}).Error; err != nil {
		t.Fatalf("revoke: %v", err)
	}
	var perm models.Permission
	gdb.Where(&models.Permission{Key: "document:create"}).First(&perm)
	if err := gdb.Create(&models.RolePermission{RoleID: teacher.ID, PermissionID: perm.ID}).Error; err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if got := grantCount(t, gdb, "STUDENT"); got != 0 {
		t.Errorf("STUDENT grants = %d after re-seed, want 0", got)
	}
	if got := grantCount(t, gdb, "TEACHER"); got != 1 {
		t.Errorf("TEACHER grants = %d after re-seed, want 1", got)
	}
	if got := grantCount(t, gdb, "SUPER_ADMIN"); got != 16 {
		t.Errorf("SUPER_ADMIN grants = %d after re-seed, want 16", got)
	}
}

func TestSeed_RecreatedRoleGetsGrants(t *testing.T) {
	gdb := testDB(t)
	seed, _ := LoadSeed()
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var student models.Role
	gdb.Where(&models.Role{Key: "STUDENT"}).First(&student)
	gdb.Where("role_id = ?", student.ID).Delete(&models.RolePermission{})
	if err := gdb.Delete(&student).Error; err != nil {
		t.Fatalf("delete role: %v", err)
	}

	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if got := grantCount(t, gdb, "STUDENT"); got != 2 {
		t.Errorf("STUDENT grants = %d after re-creation, want 2", got)
	}
}

func TestParseSeed_RejectsUndeclaredGrant(t *testing.T) {
	data := []byte(`
roles:
  - key: A
permissions:
  - key: "x:read"
grants:
  A: ["x:write"]
`)
	if _, err := ParseSeed(data); err == nil {
		t.Fatal("expected error for grant of undeclared permission")
	}
}

func TestParseSeed_RejectsMalformedKey(t *testing.T) {
	data := []byte(`
roles:
  - key: A
permissions:
  - key: "noaction"
`)
	if _, err := ParseSeed(data); err == nil {
		t.Fatal("expected error for permission key without action")
	}
}

func TestCreateDefaultAdmin(t *testing.T) {
	gdb := testDB(t)
	seed, _ := LoadSeed()
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	cfg := config.Default().Auth
	cfg.BcryptCost = bcrypt.MinCost

	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "secret123")

	if err := CreateDefaultAdmin(gdb, cfg); err != nil {
		t.Fatalf("CreateDefaultAdmin: %v", err)
	}

	var user models.User
	if err := gdb.Preload("Role").Where(&models.User{Email: "root@example.com"}).First(&user).Error; err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if user.RoleKey() != "SUPER_ADMIN" {
		t.Fatalf("admin role = %q, want SUPER_ADMIN", user.RoleKey())
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")) != nil {
		t.Fatal("stored hash does not match password")
	}

	// Second call is a no-op because a user exists.
	t.Setenv("ADMIN_EMAIL", "other@example.com")
	if err := CreateDefaultAdmin(gdb, cfg); err != nil {
		t.Fatalf("second CreateDefaultAdmin: %v", err)
	}
	var count int64
	gdb.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}
}

func TestCreateDefaultAdmin_MixedCaseEmailCanLogIn(t *testing.T) {
	gdb := testDB(t)
	seed, _ := LoadSeed()
	if err := Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	cfg := config.Default().Auth
	cfg.BcryptCost = bcrypt.MinCost

	t.Setenv("ADMIN_EMAIL", "  Admin@Example.com ")
	t.Setenv("ADMIN_PASSWORD", "secret123")
	if err := CreateDefaultAdmin(gdb, cfg); err != nil {
		t.Fatalf("CreateDefaultAdmin: %v", err)
	}

	var user models.User
	if err := gdb.Where(&models.User{Email: "admin@example.com"}).First(&user).Error; err != nil {
		t.Fatalf("admin not stored under normalized email: %v", err)
	}

	s := store.New(gdb)
	tokens := auth.NewTokenManager("secret", time.Hour, "dongui")
	authenticator := auth.NewAuthenticator(s.Users, s.Roles, auth.NewBcryptHasher(bcrypt.MinCost), tokens, cfg.DefaultRoleKey, nil)
	resp, err := authenticator.Login(context.Background(), "Admin@Example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.ID != user.ID {
		t.Errorf("logged in as %s, want %s", resp.User.ID, user.ID)
	}
}

func TestCreateDefaultAdmin_SkipsWithoutEnv(t *testing.T) {
	gdb := testDB(t)
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	if err := CreateDefaultAdmin(gdb, config.Default().Auth); err != nil {
		t.Fatalf("CreateDefaultAdmin: %v", err)
	}
	var count int64
	gdb.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users, got %d", count)
	}
}
