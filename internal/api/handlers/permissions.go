package handlers

import (
	"net/http"

	"github.com/donhauser001/dongui/internal/api/middleware"
	"github.com/donhauser001/dongui/internal/rbac"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PermissionHandler struct {
	resolver *rbac.Resolver
}

func NewPermissionHandler(resolver *rbac.Resolver) *PermissionHandler {
	return &PermissionHandler{resolver: resolver}
}

// AssignPermissionsRequest replaces a role's grant set.
type AssignPermissionsRequest struct {
	RoleID        uuid.UUID   `json:"roleId" binding:"required"`
	PermissionIDs []uuid.UUID `json:"permissionIds"`
}

type CheckPermissionRequest struct {
	Permission string `json:"permission" binding:"required"`
}

type CheckPermissionResponse struct {
	Permission    string `json:"permission"`
	HasPermission bool   `json:"hasPermission"`
}

// ListPermissions godoc
// @Summary List all permissions
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permission
// @Router /permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	perms, err := h.resolver.FindAllPermissions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// RolePermissions godoc
// @Summary Permissions granted to a role
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {array} models.Permission
// @Router /permissions/role/{id} [get]
func (h *PermissionHandler) RolePermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	perms, err := h.resolver.FindPermissionsByRole(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// AssignPermissions godoc
// @Summary Replace a role's permissions
// @Tags permissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body AssignPermissionsRequest true "Role and permission IDs"
// @Success 200 {array} models.Permission
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /permissions/assign [post]
func (h *PermissionHandler) AssignPermissions(c *gin.Context) {
	var req AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	perms, err := h.resolver.AssignPermissionsToRole(c.Request.Context(), req.RoleID, req.PermissionIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// MyPermissions godoc
// @Summary Permissions of the calling user
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permission
// @Router /permissions/my [get]
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	perms, err := h.resolver.GetUserPermissions(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// CheckPermission godoc
// @Summary Check whether the calling user holds a permission
// @Tags permissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CheckPermissionRequest true "Permission key"
// @Success 200 {object} CheckPermissionResponse
// @Router /permissions/check [post]
func (h *PermissionHandler) CheckPermission(c *gin.Context) {
	var req CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ok, err := h.resolver.CheckPermission(c.Request.Context(), middleware.CurrentUser(c).ID, req.Permission)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckPermissionResponse{Permission: req.Permission, HasPermission: ok})
}
