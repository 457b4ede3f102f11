package handlers

import (
	"net/http"

	"github.com/donhauser001/dongui/internal/service"
	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	svc *service.ConfigService
}

func NewConfigHandler(svc *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

// GetConfig godoc
// @Summary Read a configuration value
// @Description Returns the stored JSON value, or null when the key is unset
// @Tags config
// @Produce json
// @Param key path string true "Config key"
// @Success 200 {object} object
// @Router /config/{key} [get]
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	value, err := h.svc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		handleError(c, err)
		return
	}
	if value == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte("null"))
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", value)
}

// ListConfig godoc
// @Summary List all configuration entries
// @Tags config
// @Security BearerAuth
// @Produce json
// @Success 200 {array} service.ConfigEntry
// @Router /config [get]
func (h *ConfigHandler) ListConfig(c *gin.Context) {
	entries, err := h.svc.All(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SetConfig godoc
// @Summary Create or replace a configuration entry
// @Tags config
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body service.SetConfigInput true "Entry"
// @Success 200 {object} service.ConfigEntry
// @Failure 400 {object} ErrorResponse
// @Router /config [post]
func (h *ConfigHandler) SetConfig(c *gin.Context) {
	var in service.SetConfigInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	entry, err := h.svc.Set(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
