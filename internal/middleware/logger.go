package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger writes one zap entry per request. 5xx responses log at
// error level, 4xx at warn.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	log = log.Named("http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if p, ok := CurrentPrincipal(c); ok {
				fields = append(fields, zap.Uint64("user_id", p.UserID))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			lvl := zapcore.InfoLevel
			switch {
			case v.Status >= 500:
				lvl = zapcore.ErrorLevel
			case v.Status >= 400:
				lvl = zapcore.WarnLevel
			}
			log.Log(lvl, "request", fields...)
			return nil
		},
	})
}
