package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/db"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/google/uuid"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.New(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	seed, err := db.LoadSeed()
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if err := db.Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	s := New(gdb)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustRole(t *testing.T, s *Store, key string) *models.Role {
	t.Helper()
	role, err := s.Roles.FindByKey(context.Background(), key)
	if err != nil {
		t.Fatalf("FindByKey(%s): %v", key, err)
	}
	return role
}

func createUser(t *testing.T, s *Store, email, name, roleKey string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: "x",
		RoleID:       mustRole(t, s, roleKey).ID,
		Status:       true,
	}
	if err := s.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create user %s: %v", email, err)
	}
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u := createUser(t, s, "ann@example.com", "Ann", "STUDENT")
	if u.ID == uuid.Nil {
		t.Fatal("expected non-nil ID after create")
	}

	got, err := s.Users.FindByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.RoleKey() != "STUDENT" {
		t.Fatalf("expected preloaded role STUDENT, got %q", got.RoleKey())
	}

	if err := s.Users.Update(ctx, u.ID, map[string]any{"status": false, "name": "Anne"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = s.Users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status || got.Name != "Anne" {
		t.Fatalf("update not applied: status=%v name=%q", got.Status, got.Name)
	}

	if err := s.Users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Users.FindByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Users.Delete(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestUserListFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	createUser(t, s, "alice@example.com", "Alice", "ADMIN")
	createUser(t, s, "bob@example.com", "Bob", "STUDENT")
	carol := createUser(t, s, "carol@school.org", "Carol", "STUDENT")
	if err := s.Users.Update(ctx, carol.ID, map[string]any{"status": false}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tests := []struct {
		name   string
		filter UserFilter
		want   int64
	}{
		{"all", UserFilter{}, 3},
		{"search email", UserFilter{Search: "EXAMPLE"}, 2},
		{"search name", UserFilter{Search: "car"}, 1},
		{"role", UserFilter{RoleKey: "STUDENT"}, 2},
		{"disabled", UserFilter{Status: new(bool)}, 1},
		{"unknown role", UserFilter{RoleKey: "NOPE"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Users.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count: %v", err)
			}
			if n != tt.want {
				t.Errorf("Count = %d, want %d", n, tt.want)
			}
		})
	}

	users, err := s.Users.List(ctx, UserQuery{OrderBy: "name", Desc: true, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].Name != "Carol" || users[1].Name != "Bob" {
		t.Fatalf("unexpected page: %+v", users)
	}

	users, err = s.Users.List(ctx, UserQuery{OrderBy: "name", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 1 || users[0].Name != "Carol" {
		t.Fatalf("unexpected second page: %+v", users)
	}
}

func TestRoleListCountsUsers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	createUser(t, s, "a@example.com", "A", "STUDENT")
	createUser(t, s, "b@example.com", "B", "STUDENT")

	roles, err := s.Roles.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(roles) != 4 {
		t.Fatalf("expected 4 seeded roles, got %d", len(roles))
	}
	for _, r := range roles {
		want := int64(0)
		if r.Key == "STUDENT" {
			want = 2
		}
		if r.UserCount != want {
			t.Errorf("role %s UserCount = %d, want %d", r.Key, r.UserCount, want)
		}
	}
}

func TestRoleDeleteRemovesGrants(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	role := &models.Role{Key: "EDITOR", Name: "Editor"}
	if err := s.Roles.Create(ctx, role); err != nil {
		t.Fatalf("Create: %v", err)
	}
	perms, _ := s.Permissions.List(ctx)
	if err := s.Permissions.ReplaceGrants(ctx, role.ID, []uuid.UUID{perms[0].ID}); err != nil {
		t.Fatalf("ReplaceGrants: %v", err)
	}

	if err := s.Roles.Delete(ctx, role.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var edges int64
	s.DB().Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&edges)
	if edges != 0 {
		t.Fatalf("expected grants removed with role, %d left", edges)
	}
	if _, err := s.Roles.FindByID(ctx, role.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceGrants(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	student := mustRole(t, s, "STUDENT")

	before, err := s.Permissions.FindByRole(ctx, student.ID)
	if err != nil {
		t.Fatalf("FindByRole: %v", err)
	}
	if len(before) != 2 {
		t.Fatalf("expected 2 seeded STUDENT grants, got %d", len(before))
	}

	all, _ := s.Permissions.List(ctx)
	ids := []uuid.UUID{all[0].ID, all[1].ID, all[2].ID, all[0].ID}
	if err := s.Permissions.ReplaceGrants(ctx, student.ID, ids); err != nil {
		t.Fatalf("ReplaceGrants: %v", err)
	}
	after, _ := s.Permissions.FindByRole(ctx, student.ID)
	if len(after) != 3 {
		t.Fatalf("expected 3 grants after replace, got %d", len(after))
	}

	// An unknown id leaves the previous set intact.
	err = s.Permissions.ReplaceGrants(ctx, student.ID, []uuid.UUID{all[5].ID, uuid.New()})
	if !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
	kept, _ := s.Permissions.FindByRole(ctx, student.ID)
	if len(kept) != 3 {
		t.Fatalf("expected failed replace to keep 3 grants, got %d", len(kept))
	}

	if err := s.Permissions.ReplaceGrants(ctx, student.ID, nil); err != nil {
		t.Fatalf("ReplaceGrants(empty): %v", err)
	}
	empty, _ := s.Permissions.FindByRole(ctx, student.ID)
	if len(empty) != 0 {
		t.Fatalf("expected no grants, got %d", len(empty))
	}
}

func TestPermissionsOrderedByResource(t *testing.T) {
	s := testStore(t)
	perms, err := s.Permissions.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(perms) != 16 {
		t.Fatalf("expected 16 seeded permissions, got %d", len(perms))
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1].Resource > perms[i].Resource {
			t.Fatalf("permissions not ordered by resource: %s before %s", perms[i-1].Key, perms[i].Key)
		}
	}
}
