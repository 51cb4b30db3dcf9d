package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// Messages returned when the guard refuses a request.
const (
	MsgMissingToken     = "未提供令牌"
	MsgInvalidToken     = "令牌无效或已过期"
	MsgStoreUnavailable = "数据库服务暂时不可用，请稍后再试"
)

// TokenValidator resolves an access token to the principal it was issued
// for. *auth.Authority satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (model.Principal, error)
}

// Guard returns an Echo middleware that requires a valid Bearer access
// token. On success the principal, its user id and role, and the raw token
// are stored in the context for handlers and later middleware.
//
// An unreachable token store answers 503 rather than 401, so clients do
// not throw away credentials that are still good.
func Guard(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgMissingToken)
			}

			p, err := v.Validate(c.Request().Context(), raw)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrStoreUnavailable):
				return echo.NewHTTPError(http.StatusServiceUnavailable, MsgStoreUnavailable).SetInternal(err)
			case errors.Is(err, auth.ErrUnauthorized):
				return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
			default:
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}

			setPrincipal(c, p, raw)
			return next(c)
		}
	}
}

// bearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
