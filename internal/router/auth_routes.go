package router

import (
	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/handler"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// RegisterAuth registers /api/auth. Login and refresh exchange credentials
// and sit behind the rate limiter; the rest require a session.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, guard, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth")

	g.POST("/login", a.Login, limiter)
	g.POST("/refresh", a.Refresh, limiter)

	g.POST("/logout", a.Logout, guard)
	g.POST("/modify/password", a.ChangePassword, guard)
	g.POST("/admin/password", a.AdminSetPassword, guard, middleware.RequireRole(model.RoleAdmin))
}
