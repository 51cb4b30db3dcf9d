package middleware

// identity.go holds the context keys the guard fills in and the helpers
// handlers use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

const (
	principalKey   = "principal"
	userIDKey      = "user_id"
	roleKey        = "role"
	accessTokenKey = "access_token"
)

func setPrincipal(c echo.Context, p model.Principal, token string) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.UserID)
	c.Set(roleKey, p.Role)
	c.Set(accessTokenKey, token)
}

// CurrentPrincipal returns the principal stored by Guard.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// AccessToken returns the bearer token presented on this request, or "".
func AccessToken(c echo.Context) string {
	s, _ := c.Get(accessTokenKey).(string)
	return s
}

// requesterID identifies the caller for rate limiting. Requests that have
// not passed the guard are "guest".
func requesterID(c echo.Context) string {
	if p, ok := CurrentPrincipal(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "guest"
}
