package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger.  Production mode emits JSON with ISO8601
// timestamps; anything else gets the colored development console output.
func New(level, env, service string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	fields := zap.Fields(zap.String("service", service), zap.String("environment", env))
	if env == "prod" || env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build(fields)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build(fields)
}

// Middleware returns an Echo middleware that stores a request-scoped logger
// in the context and logs one line per HTTP request.  It must run after the
// request id middleware.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctxLogger := base.With(zap.String("request_id", requestID))
			c.Set(contextKey, ctxLogger)

			// Let echo render the error first so the logged status is final.
			if err := next(c); err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if uid, ok := c.Get("user_id").(uint64); ok {
				fields = append(fields, zap.Uint64("user_id", uid))
			}
			switch status := c.Response().Status; {
			case status >= 500:
				ctxLogger.Error("HTTP Request", fields...)
			case status >= 400:
				ctxLogger.Warn("HTTP Request", fields...)
			default:
				ctxLogger.Info("HTTP Request", fields...)
			}
			return nil
		}
	}
}
