package auth

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/db"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testEnv struct {
	store  *store.Store
	tokens *TokenManager
	auth   *Authenticator
	guard  *Guard
}

func setupTest(t *testing.T) *testEnv {
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

	s := store.New(gdb)
	t.Cleanup(func() { s.Close() })

	tokens := NewTokenManager(testSecret, time.Hour, "dongui-test")
	return &testEnv{
		store:  s,
		tokens: tokens,
		auth:   NewAuthenticator(s.Users, s.Roles, NewBcryptHasher(bcrypt.MinCost), tokens, "STUDENT", nil),
		guard:  NewGuard(s.Users, tokens, nil),
	}
}

func (e *testEnv) register(t *testing.T, email string) *LoginResponse {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{Email: email, Name: "Ann", Password: "Passw0rd"})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return resp
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour, "dongui")
	id := uuid.New()

	token, err := m.Issue(id, "a@x.com", "ADMIN")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	got, _ := claims.UserID()
	if got != id || claims.Email != "a@x.com" || claims.RoleKey != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected issued-at and expiry to be set")
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour, "dongui")
	other := NewTokenManager("another-secret", time.Hour, "dongui")
	foreign, _ := other.Issue(uuid.New(), "a@x.com", "ADMIN")

	wrongAlg := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "dongui",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongAlgToken, _ := wrongAlg.SignedString([]byte(testSecret))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: "dongui"},
	})
	noExpiryToken, _ := noExpiry.SignedString([]byte(testSecret))

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    "dongui",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubjectToken, _ := badSubject.SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", foreign},
		{"wrong algorithm", wrongAlgToken},
		{"no expiry", noExpiryToken},
		{"bad subject", badSubjectToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.Verify(tt.token)
			if claims != nil {
				t.Fatalf("expected no claims, got %+v", claims)
			}
			if apperr.KindOf(err) != apperr.KindUnauthorized {
				t.Fatalf("expected Unauthorized, got %v", err)
			}
			if apperr.ReasonOf(err) != apperr.ReasonInvalidToken {
				t.Errorf("reason = %q, want %q", apperr.ReasonOf(err), apperr.ReasonInvalidToken)
			}
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, "dongui")
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.Issue(uuid.New(), "a@x.com", "STUDENT")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	m.now = time.Now

	_, err = m.Verify(token)
	if apperr.ReasonOf(err) != apperr.ReasonExpiredToken {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	resp := env.register(t, "a@x.com")
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.User.RoleKey() != "STUDENT" {
		t.Fatalf("role = %q, want STUDENT", resp.User.RoleKey())
	}

	data, _ := json.Marshal(resp.User)
	if strings.Contains(string(data), resp.User.PasswordHash) || strings.Contains(strings.ToLower(string(data)), "password") {
		t.Fatalf("serialized user leaks the password digest: %s", data)
	}

	// Case and whitespace do not create a second account.
	for _, email := range []string{"a@x.com", " A@X.com "} {
		_, err := env.auth.Register(ctx, RegisterRequest{Email: email, Name: "Ann", Password: "Passw0rd"})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("Register(%q) = %v, want Conflict", email, err)
		}
	}
	n, _ := env.store.Users.Count(ctx, store.UserFilter{Search: "a@x.com"})
	if n != 1 {
		t.Fatalf("expected 1 user for email, got %d", n)
	}
}

func TestRegister_MissingDefaultRole(t *testing.T) {
	env := setupTest(t)
	a := NewAuthenticator(env.store.Users, env.store.Roles, NewBcryptHasher(bcrypt.MinCost), env.tokens, "GUEST", nil)

	_, err := a.Register(context.Background(), RegisterRequest{Email: "b@x.com", Name: "Bo", Password: "Passw0rd"})
	if apperr.KindOf(err) != apperr.KindMisconfigured {
		t.Fatalf("expected Misconfigured, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := setupTest(t)
	env.register(t, "a@x.com")

	resp, err := env.auth.Login(context.Background(), "a@x.com", "Passw0rd")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Email != "a@x.com" || claims.RoleKey != "STUDENT" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_FailuresShareShape(t *testing.T) {
	env := setupTest(t)
	env.register(t, "a@x.com")
	ctx := context.Background()

	var messages []string
	for i := 0; i < 3; i++ {
		_, err := env.auth.Login(ctx, "a@x.com", "wrong-pass1")
		if apperr.KindOf(err) != apperr.KindUnauthorized {
			t.Fatalf("attempt %d: expected Unauthorized, got %v", i, err)
		}
		if apperr.ReasonOf(err) != apperr.ReasonBadPassword {
			t.Errorf("attempt %d: reason = %q", i, apperr.ReasonOf(err))
		}
		messages = append(messages, err.Error())
	}

	_, err := env.auth.Login(ctx, "nobody@x.com", "Passw0rd")
	if apperr.KindOf(err) != apperr.KindUnauthorized || apperr.ReasonOf(err) != apperr.ReasonUnknownEmail {
		t.Fatalf("unknown email: got %v", err)
	}
	messages = append(messages, err.Error())

	for _, msg := range messages[1:] {
		if msg != messages[0] {
			t.Fatalf("error shapes differ: %q vs %q", messages[0], msg)
		}
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()

	if err := env.store.Users.Update(ctx, resp.User.ID, map[string]any{"status": false}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := env.auth.Login(ctx, "a@x.com", "Passw0rd")
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if apperr.ReasonOf(err) != apperr.ReasonDisabled {
		t.Fatalf("reason = %q, want disabled", apperr.ReasonOf(err))
	}
}

func TestGetProfile(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()

	user, err := env.auth.GetProfile(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if user.Email != "a@x.com" || user.RoleKey() != "STUDENT" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	if _, err := env.auth.GetProfile(ctx, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGuard_Public(t *testing.T) {
	env := setupTest(t)
	identity, err := env.guard.Authorize(context.Background(), Public(), "")
	if err != nil || identity != nil {
		t.Fatalf("public route: identity=%v err=%v", identity, err)
	}
}

func TestGuard_Authenticated(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()

	identity, err := env.guard.Authorize(ctx, Authenticated(), resp.Token)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if identity.User.ID != resp.User.ID {
		t.Fatalf("identity = %v, want %v", identity.User.ID, resp.User.ID)
	}

	_, err = env.guard.Authorize(ctx, Authenticated(), "")
	if apperr.ReasonOf(err) != apperr.ReasonNoToken {
		t.Fatalf("missing token: got %v", err)
	}
	_, err = env.guard.Authorize(ctx, Authenticated(), "garbage")
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("bad token: got %v", err)
	}
}

func TestGuard_DisabledUserTokenRevoked(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()

	if _, err := env.guard.Authorize(ctx, Authenticated(), resp.Token); err != nil {
		t.Fatalf("Authorize while enabled: %v", err)
	}
	if err := env.store.Users.Update(ctx, resp.User.ID, map[string]any{"status": false}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := env.guard.Authorize(ctx, Authenticated(), resp.Token)
	if apperr.KindOf(err) != apperr.KindUnauthorized || apperr.ReasonOf(err) != apperr.ReasonDisabled {
		t.Fatalf("expected Unauthorized(disabled), got %v", err)
	}
}

func TestGuard_DeletedUser(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()

	if err := env.store.Users.Delete(ctx, resp.User.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := env.guard.Authorize(ctx, Authenticated(), resp.Token)
	if apperr.ReasonOf(err) != apperr.ReasonMissingUser {
		t.Fatalf("expected missing user denial, got %v", err)
	}
}

func TestGuard_RoleChangeTakesEffectImmediately(t *testing.T) {
	env := setupTest(t)
	resp := env.register(t, "a@x.com")
	ctx := context.Background()
	adminOnly := RoleRestricted("ADMIN", "SUPER_ADMIN")

	_, err := env.guard.Authorize(ctx, adminOnly, resp.Token)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("student on admin route: expected Forbidden, got %v", err)
	}

	admin, err := env.store.Roles.FindByKey(ctx, "ADMIN")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if err := env.store.Users.Update(ctx, resp.User.ID, map[string]any{"role_id": admin.ID}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Same token still claims STUDENT; the live role decides.
	claims, _ := env.tokens.Verify(resp.Token)
	if claims.RoleKey != "STUDENT" {
		t.Fatalf("token claim changed unexpectedly: %q", claims.RoleKey)
	}
	identity, err := env.guard.Authorize(ctx, adminOnly, resp.Token)
	if err != nil {
		t.Fatalf("promoted user: %v", err)
	}
	if identity.RoleKey() != "ADMIN" {
		t.Fatalf("identity role = %q, want ADMIN", identity.RoleKey())
	}

	// And demotion applies just as fast.
	student, _ := env.store.Roles.FindByKey(ctx, "STUDENT")
	env.store.Users.Update(ctx, resp.User.ID, map[string]any{"role_id": student.ID})
	if _, err := env.guard.Authorize(ctx, adminOnly, resp.Token); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("demoted user: expected Forbidden, got %v", err)
	}
}

func TestRequirementString(t *testing.T) {
	if got := RoleRestricted("A", "B").String(); got != "roles(A,B)" {
		t.Errorf("String() = %q", got)
	}
	if !Public().IsPublic() || Authenticated().IsPublic() {
		t.Error("IsPublic mismatch")
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"Bearer  abc": "abc",
		"bearer abc":  "",
		"Basic abc":   "",
		"":            "",
	}
	for header, want := range tests {
		if got := BearerToken(header); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
