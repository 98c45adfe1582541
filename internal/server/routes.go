package server

import (
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Suspect link routes
	apiRoutes.GET("/suspects", routes.GetSuspectsHandler, middleware.RequirePermission(middleware.PermissionSuspectsView))
	apiRoutes.GET("/suspects/:id", routes.GetSuspectHandler, middleware.RequirePermission(middleware.PermissionSuspectsView))

	// Run routes
	apiRoutes.GET("/runs", routes.GetRunsHandler, middleware.RequirePermission(middleware.PermissionRunsView, middleware.PermissionRunsTrigger))
	apiRoutes.GET("/runs/:id", routes.GetRunHandler, middleware.RequirePermission(middleware.PermissionRunsView, middleware.PermissionRunsTrigger))
	apiRoutes.POST("/runs", routes.CreateRunHandler, middleware.RequirePermission(middleware.PermissionRunsTrigger))
}
