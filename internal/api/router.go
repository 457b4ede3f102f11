package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/donhauser001/dongui/internal/api/handlers"
	"github.com/donhauser001/dongui/internal/api/middleware"
	"github.com/donhauser001/dongui/internal/auth"
	"github.com/donhauser001/dongui/internal/config"
	"github.com/donhauser001/dongui/internal/metrics"
	"github.com/donhauser001/dongui/internal/ratelimit"
	"github.com/donhauser001/dongui/internal/rbac"
	"github.com/donhauser001/dongui/internal/service"
	"github.com/donhauser001/dongui/internal/store"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const roleAdmin = "ADMIN"

// route binds a handler to its access requirement.
type route struct {
	method  string
	path    string
	require auth.Requirement
	handler gin.HandlerFunc
}

// NewRouter creates and configures the Gin router. limiter may be nil to
// disable throttling.
func NewRouter(cfg *config.Config, db *gorm.DB, limiter ratelimit.Limiter, m *metrics.Metrics) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())
	router.Use(m.Middleware())

	st := store.New(db)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	authenticator := auth.NewAuthenticator(st.Users, st.Roles, hasher, tokens, cfg.Auth.DefaultRoleKey, m)
	guard := auth.NewGuard(st.Users, tokens, m)
	resolver := rbac.NewResolver(st.Users, st.Roles, st.Permissions)
	userSvc := service.NewUserService(st.Users, st.Roles, hasher, cfg.Auth.DefaultRoleKey, cfg.Auth.SuperAdminRoleKey)

	authH := handlers.NewAuthHandler(authenticator)
	userH := handlers.NewUserHandler(userSvc)
	roleH := handlers.NewRoleHandler(rbac.NewRoleManager(st.Roles))
	permH := handlers.NewPermissionHandler(resolver)
	configH := handlers.NewConfigHandler(service.NewConfigService(st.Configs))
	systemH := handlers.NewSystemHandler(db, userSvc)

	public := auth.Public()
	authenticated := auth.Authenticated()
	admins := auth.RoleRestricted(roleAdmin, cfg.Auth.SuperAdminRoleKey)
	superAdmin := auth.RoleRestricted(cfg.Auth.SuperAdminRoleKey)

	routes := []route{
		{http.MethodGet, "/health", public, systemH.HealthCheck},
		{http.MethodGet, "/status", public, systemH.Status},

		{http.MethodPost, "/auth/register", public, authH.Register},
		{http.MethodPost, "/auth/login", public, authH.Login},
		{http.MethodGet, "/auth/profile", authenticated, authH.Profile},
		{http.MethodGet, "/auth/me", authenticated, authH.Me},

		{http.MethodGet, "/users", admins, userH.ListUsers},
		{http.MethodPost, "/users", admins, userH.CreateUser},
		{http.MethodGet, "/users/:id", admins, userH.GetUser},
		{http.MethodPatch, "/users/:id", admins, userH.UpdateUser},
		{http.MethodPatch, "/users/:id/toggle-status", admins, userH.ToggleUserStatus},
		{http.MethodDelete, "/users/:id", superAdmin, userH.DeleteUser},

		{http.MethodGet, "/roles", admins, roleH.ListRoles},
		{http.MethodGet, "/roles/:id", admins, roleH.GetRole},
		{http.MethodPost, "/roles", superAdmin, roleH.CreateRole},
		{http.MethodPatch, "/roles/:id", superAdmin, roleH.UpdateRole},
		{http.MethodDelete, "/roles/:id", superAdmin, roleH.DeleteRole},

		{http.MethodGet, "/permissions", admins, permH.ListPermissions},
		{http.MethodGet, "/permissions/my", authenticated, permH.MyPermissions},
		{http.MethodGet, "/permissions/role/:id", admins, permH.RolePermissions},
		{http.MethodPost, "/permissions/check", authenticated, permH.CheckPermission},
		{http.MethodPost, "/permissions/assign", superAdmin, permH.AssignPermissions},

		{http.MethodGet, "/config", admins, configH.ListConfig},
		{http.MethodPost, "/config", admins, configH.SetConfig},
		{http.MethodGet, "/config/:key", public, configH.GetConfig},
	}

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(skipPath("/api/v1/health", middleware.RateLimit(limiter, m)))
	}
	for _, r := range routes {
		v1.Handle(r.method, r.path, middleware.Authorize(guard, r.require), r.handler)
	}

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode, "routes", len(routes))
	return router
}

// skipPath runs next for every request except the given path.
func skipPath(path string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == path {
			c.Next()
			return
		}
		next(c)
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
