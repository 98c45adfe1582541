package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermissionSuspectsView = "suspects.view"
	PermissionRunsView     = "runs.view"
	PermissionRunsTrigger  = "runs.trigger"
)

const (
	RoleOperator = "operator"
	RoleReader   = "reader"
)

var rolePermissions = map[string][]string{
	RoleOperator: {PermissionSuspectsView, PermissionRunsView, PermissionRunsTrigger},
	RoleReader:   {PermissionSuspectsView, PermissionRunsView},
}

// NewUser returns the user for role with that role's permissions.
func NewUser(role string) *AppUser {
	return &AppUser{Role: role, Permissions: slices.Clone(rolePermissions[role])}
}

// Can reports whether u holds at least one of permissions.
func (u *AppUser) Can(permissions ...string) bool {
	if u == nil {
		return false
	}
	return slices.ContainsFunc(permissions, func(p string) bool {
		return slices.Contains(u.Permissions, p)
	})
}

// RequirePermission lets the request through when the authenticated user
// holds any of permissions.
func RequirePermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.(*AppContext).User
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !user.Can(permissions...) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: role " + user.Role + " may not do this"})
			}
			return next(c)
		}
	}
}
