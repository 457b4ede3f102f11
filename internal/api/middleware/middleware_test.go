package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/donhauser001/dongui/internal/auth"
	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/db"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/ratelimit"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/gin-gonic/gin"
)

func setupGuard(t *testing.T) (*auth.Guard, *auth.TokenManager, *store.Store) {
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
	seed, _ := db.LoadSeed()
	if err := db.Seed(gdb, seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	s := store.New(gdb)
	t.Cleanup(func() { s.Close() })

	tokens := auth.NewTokenManager("secret", time.Hour, "dongui")
	return auth.NewGuard(s.Users, tokens, nil), tokens, s
}

func createUser(t *testing.T, s *store.Store, roleKey string) *models.User {
	t.Helper()
	ctx := context.Background()
	role, err := s.Roles.FindByKey(ctx, roleKey)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	u := &models.User{Email: roleKey + "@x.com", Name: roleKey, PasswordHash: "x", RoleID: role.ID, Status: true}
	if err := s.Users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestAuthorize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	guard, tokens, s := setupGuard(t)
	admin := createUser(t, s, "ADMIN")
	student := createUser(t, s, "STUDENT")
	adminToken, _ := tokens.Issue(admin.ID, admin.Email, "ADMIN")
	studentToken, _ := tokens.Issue(student.ID, student.Email, "STUDENT")

	r := gin.New()
	handler := func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Email)
			return
		}
		c.String(http.StatusOK, "anonymous")
	}
	r.GET("/public", Authorize(guard, auth.Public()), handler)
	r.GET("/me", Authorize(guard, auth.Authenticated()), handler)
	r.GET("/admin", Authorize(guard, auth.RoleRestricted("ADMIN", "SUPER_ADMIN")), handler)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{"public anonymous", "/public", "", http.StatusOK, "anonymous"},
		{"authenticated no token", "/me", "", http.StatusUnauthorized, ""},
		{"authenticated bad token", "/me", "junk", http.StatusUnauthorized, ""},
		{"authenticated ok", "/me", studentToken, http.StatusOK, student.Email},
		{"role forbidden", "/admin", studentToken, http.StatusForbidden, ""},
		{"role allowed", "/admin", adminToken, http.StatusOK, admin.Email},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{Allowed: true}, errors.New("backend down")
}

func (failingLimiter) Close() error { return nil }

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	defer limiter.Close()

	r := gin.New()
	r.Use(RateLimit(limiter, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("missing limit header: %v", w.Header())
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(failingLimiter{}, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected request to pass, got %d", w.Code)
	}
}
