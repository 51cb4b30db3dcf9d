package router

import (
	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/handler"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// RegisterUsers registers /api/users. Every route requires a session;
// management routes additionally require the admin role.
func RegisterUsers(api *echo.Group, u *handler.UserHandler, guard echo.MiddlewareFunc) {
	g := api.Group("/users", guard)
	admin := middleware.RequireRole(model.RoleAdmin)

	// ---- self service ----
	g.GET("/info", u.Info)
	g.PUT("/modify", u.UpdateSelf)
	g.GET("/logout", u.LogoutAll)

	// ---- administration ----
	g.GET("/list", u.List, admin)
	g.POST("/add", u.Create, admin)
	g.PUT("/info/modify", u.AdminUpdate, admin)
	g.DELETE("/delete/:uid", u.Delete, admin)
	g.DELETE("/sessions/:uid", u.ForceLogout, admin)
}
