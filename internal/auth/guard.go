package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/metrics"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/donhauser001/dongui/internal/store"
)

type requirementKind int

const (
	kindPublic requirementKind = iota
	kindAuthenticated
	kindRoleRestricted
)

// Requirement is the access rule declared for a route.
type Requirement struct {
	kind  requirementKind
	roles []string
}

// Public admits every request without a token.
func Public() Requirement { return Requirement{kind: kindPublic} }

// Authenticated admits any live, enabled user with a valid token.
func Authenticated() Requirement { return Requirement{kind: kindAuthenticated} }

// RoleRestricted admits authenticated users whose current role key is one of roles.
func RoleRestricted(roles ...string) Requirement {
	return Requirement{kind: kindRoleRestricted, roles: slices.Clone(roles)}
}

// IsPublic reports whether the requirement admits anonymous callers.
func (r Requirement) IsPublic() bool { return r.kind == kindPublic }

// Roles returns the allow-list of a RoleRestricted requirement.
func (r Requirement) Roles() []string { return slices.Clone(r.roles) }

func (r Requirement) String() string {
	switch r.kind {
	case kindPublic:
		return "public"
	case kindAuthenticated:
		return "authenticated"
	default:
		return "roles(" + strings.Join(r.roles, ",") + ")"
	}
}

// Identity is the caller as loaded from the store on this request.
type Identity struct {
	User *models.User
}

// RoleKey returns the live role key.
func (i *Identity) RoleKey() string {
	if i == nil || i.User == nil {
		return ""
	}
	return i.User.RoleKey()
}

// Guard decides whether a request may proceed. It never caches user state:
// every decision reloads the user so that a disabled account or a changed
// role takes effect on the next request.
type Guard struct {
	users   store.UserRepository
	tokens  *TokenManager
	metrics *metrics.Metrics
}

// NewGuard creates a guard.
func NewGuard(users store.UserRepository, tokens *TokenManager, m *metrics.Metrics) *Guard {
	return &Guard{users: users, tokens: tokens, metrics: m}
}

// Authorize evaluates req for the given bearer token. A nil error means
// Allowed; the identity is nil for public routes. Denials are Unauthorized
// or Forbidden errors.
func (g *Guard) Authorize(ctx context.Context, req Requirement, bearer string) (*Identity, error) {
	if req.IsPublic() {
		return nil, nil
	}

	identity, err := g.authenticate(ctx, bearer)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			g.metrics.ObserveDecision(metrics.DecisionUnauthenticated)
			slog.Debug("Request denied", "requirement", req.String(), "reason", apperr.ReasonOf(err))
		}
		return nil, err
	}

	if req.kind == kindRoleRestricted && !slices.Contains(req.roles, identity.RoleKey()) {
		g.metrics.ObserveDecision(metrics.DecisionForbidden)
		slog.Debug("Request forbidden", "requirement", req.String(), "user_id", identity.User.ID, "role", identity.RoleKey())
		return nil, apperr.Forbidden("insufficient role")
	}

	g.metrics.ObserveDecision(metrics.DecisionAllowed)
	return identity, nil
}

func (g *Guard) authenticate(ctx context.Context, bearer string) (*Identity, error) {
	if bearer == "" {
		return nil, apperr.Unauthorized("missing token", apperr.ReasonNoToken)
	}
	claims, err := g.tokens.Verify(bearer)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user, err := g.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("user not found or disabled", apperr.ReasonMissingUser)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Status {
		return nil, apperr.Unauthorized("user not found or disabled", apperr.ReasonDisabled)
	}
	return &Identity{User: user}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
