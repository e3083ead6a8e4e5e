package handler

import (
	"net/http"

	"factory/internal/middleware"
	"factory/internal/service"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
	auth        *middleware.Authenticator
}

func NewRoleHandler(roleService service.RoleService, auth *middleware.Authenticator) *RoleHandler {
	return &RoleHandler{roleService: roleService, auth: auth}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/roles")
	roles.Use(h.auth.RequirePermission("roles.manage"))
	{
		roles.GET("", h.ListRoles)
		roles.PUT("/:name/permissions", h.UpdateRolePermissions)
	}

	perms := router.Group("/permissions")
	perms.Use(h.auth.RequirePermission("roles.manage"))
	{
		perms.GET("", h.ListPermissions)
	}
}

// ListRoles returns all roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Role}
// @Router       /roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// ListPermissions returns every known permission code
// @Summary      List permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Permission}
// @Router       /permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// UpdateRolePermissions replaces the permission set of a role
// @Summary      Update role permissions
// @Description  Replaces the permission codes granted to a role. Cached permission lookups are dropped.
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name     path      string                                true  "Role name"
// @Param        payload  body      service.UpdateRolePermissionsRequest  true  "Permission codes"
// @Success      200      {object}  response.Response{data=model.Role}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /roles/{name}/permissions [put]
func (h *RoleHandler) UpdateRolePermissions(c *gin.Context) {
	var req service.UpdateRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := h.roleService.UpdateRolePermissions(c.Request.Context(), middleware.CurrentUserID(c), c.Param("name"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.auth.ClearPermissionCache(c.Param("name"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}
