package handlers

import (
	"log/slog"
	"net/http"

	"github.com/donhauser001/dongui/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type SystemHandler struct {
	db    *gorm.DB
	users *service.UserService
}

func NewSystemHandler(db *gorm.DB, users *service.UserService) *SystemHandler {
	return &SystemHandler{db: db, users: users}
}

// HealthCheck godoc
// @Summary Health check endpoint
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *SystemHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": Version,
	})
}

// StatusResponse reports database reachability and the number of users.
type StatusResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	UserCount int64  `json:"userCount"`
}

// Status godoc
// @Summary Service status
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} StatusResponse
// @Router /status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		slog.Error("database unreachable", "error", err)
		c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "error", Database: "disconnected"})
		return
	}

	count, err := h.users.Count(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "ok", Database: "connected", UserCount: count})
}
