package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// MsgForbidden is returned when the principal's role is not allowed.
const MsgForbidden = "权限不足"

// RequireRole allows the request through only when the principal stored by
// Guard has one of roles. It must run after Guard.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgMissingToken)
			}
			if !allowed[p.Role] {
				return echo.NewHTTPError(http.StatusForbidden, MsgForbidden)
			}
			return next(c)
		}
	}
}
