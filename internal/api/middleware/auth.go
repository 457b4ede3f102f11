// Package middleware adapts the authorization guard and the rate limiter
// to gin.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/donhauser001/dongui/internal/auth"
	"github.com/donhauser001/dongui/internal/models"
	"github.com/gin-gonic/gin"
)

// UserContextKey is the key used to store the authenticated user in the gin context.
const UserContextKey = "user"

// Authorize enforces req on every request through guard. On success the
// live user is stored under UserContextKey.
func Authorize(guard *auth.Guard, req auth.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if req.IsPublic() {
			c.Next()
			return
		}

		identity, err := guard.Authorize(c.Request.Context(), req, auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			switch apperr.KindOf(err) {
			case apperr.KindUnauthorized:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			case apperr.KindForbidden:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			default:
				slog.Error("Authorization failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.Set(UserContextKey, identity.User)
		c.Next()
	}
}

// CurrentUser returns the user stored by Authorize, or nil on public routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
