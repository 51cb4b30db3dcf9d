package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs validator/v10 into echo.Context.Validate.
// Failures become 400 responses naming the first offending JSON field.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fe.Field() + " 不能为空"
	case "oneof":
		msg = fe.Field() + " 取值必须为 " + fe.Param() + " 之一"
	case "max":
		msg = fe.Field() + " 长度不能超过 " + fe.Param()
	default:
		msg = fe.Field() + " 格式不正确"
	}
	return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
}
