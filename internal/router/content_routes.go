package router

import (
	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/handler"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// RegisterNotices registers /api/notices. Reads are public and cached;
// writes need an admin session and purge the cache.
func RegisterNotices(api *echo.Group, n *handler.NoticeHandler, guard, cache echo.MiddlewareFunc) {
	g := api.Group("/notices")
	admin := []echo.MiddlewareFunc{guard, middleware.RequireRole(model.RoleAdmin)}

	g.GET("/list", n.List, cache)
	g.GET("/:id", n.Get, cache)

	g.POST("/send", n.Create, admin...)
	g.POST("/modify", n.Update, admin...)
	g.DELETE("/delete/:id", n.Delete, admin...)
}

// RegisterAlbums registers /api/albums with the same split as notices.
func RegisterAlbums(api *echo.Group, a *handler.AlbumHandler, guard, cache echo.MiddlewareFunc) {
	g := api.Group("/albums")
	admin := []echo.MiddlewareFunc{guard, middleware.RequireRole(model.RoleAdmin)}

	g.GET("", a.List, cache)
	g.GET("/types", a.Types, cache)
	g.GET("/type/:id", a.ByType, cache)
	g.GET("/:id", a.Get, cache)

	g.POST("/send", a.Create, admin...)
	g.PUT("/modify/:id", a.Update, admin...)
	g.DELETE("/delete/:id", a.Delete, admin...)
}
