package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the identity fields carried by a session token. They identify
// the caller but are never trusted for authorization.
type Claims struct {
	Email   string `json:"email"`
	RoleKey string `json:"roleKey"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager for the given secret and lifetime.
func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a token for the user.
func (m *TokenManager) Issue(userID uuid.UUID, email, roleKey string) (string, error) {
	now := m.now()
	claims := &Claims{
		Email:   email,
		RoleKey: roleKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token. Any failure yields an Unauthorized
// error and no claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("token expired", apperr.ReasonExpiredToken)
		}
		return nil, apperr.Unauthorized("invalid token", apperr.ReasonInvalidToken)
	}
	if !token.Valid {
		return nil, apperr.Unauthorized("invalid token", apperr.ReasonInvalidToken)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, apperr.Unauthorized("invalid token", apperr.ReasonInvalidToken)
	}
	return claims, nil
}
