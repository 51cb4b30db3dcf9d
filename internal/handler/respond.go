package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/model"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
)

// Envelope messages.
const (
	MsgQueried  = "查询成功"
	MsgListed   = "操作成功"
	MsgInternal = "服务器内部错误"
	MsgBusy     = "登录繁忙，请稍后再试"
	MsgBadJSON  = "请求体 JSON 格式错误"
)

// envelope is the body of every JSON response.
type envelope struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg"`
	Total *int        `json:"total,omitempty"`
	Data  any         `json:"data"`
	Page  *model.Page `json:"page,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Code: http.StatusOK, Msg: MsgQueried, Data: data})
}

func okList(c echo.Context, data any, total int) error {
	return c.JSON(http.StatusOK, envelope{Code: http.StatusOK, Msg: MsgListed, Total: &total, Data: data})
}

func okPage(c echo.Context, data any, page model.Page) error {
	total := page.TotalItems
	return c.JSON(http.StatusOK, envelope{Code: http.StatusOK, Msg: MsgListed, Total: &total, Data: data, Page: &page})
}

func success(c echo.Context) error {
	return ok(c, echo.Map{"success": true})
}

func message(c echo.Context, msg string) error {
	return ok(c, echo.Map{"message": msg})
}

func badRequest(msg string) error { return echo.NewHTTPError(http.StatusBadRequest, msg) }

func notFound(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// bind decodes the request into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgBadJSON).SetInternal(err)
	}
	return c.Validate(dst)
}

// idParam parses a positive integer path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest(fmt.Sprintf("参数 %s 必须是正整数", name))
	}
	return id, nil
}

// principal returns the caller set by the guard.
func principal(c echo.Context) (model.Principal, error) {
	p, found := middleware.CurrentPrincipal(c)
	if !found {
		return model.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, middleware.MsgMissingToken)
	}
	return p, nil
}

// ErrorHandler renders every error as {code, msg, data:null}. Store
// outages become 503 so clients retry instead of discarding credentials.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	log = log.Named("http")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := http.StatusInternalServerError, MsgInternal
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			if s, isString := he.Message.(string); isString && s != "" {
				msg = s
			} else {
				msg = http.StatusText(status)
			}
		case errors.Is(err, repository.ErrUnavailable), errors.Is(err, auth.ErrStoreUnavailable):
			status, msg = http.StatusServiceUnavailable, middleware.MsgStoreUnavailable
		case errors.Is(err, auth.ErrSessionContention):
			status, msg = http.StatusInternalServerError, MsgBusy
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Int("status", status), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, envelope{Code: status, Msg: msg})
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
