package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/core/port"
)

// RolesHandler serves the static role reference data to staff accounts.
type RolesHandler struct {
	roles port.RoleRepository
}

func NewRolesHandler(roles port.RoleRepository) *RolesHandler {
	return &RolesHandler{roles: roles}
}

// List returns every assignable role.
func (h *RolesHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list roles"))
		return
	}

	out := make([]RoleSummary, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleSummary{Code: role.Code, DisplayName: role.DisplayName})
	}
	c.JSON(http.StatusOK, RoleListResponse{Roles: out})
}
