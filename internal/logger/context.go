package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contextKey = "logger"

// FromEcho retrieves the request-scoped logger, falling back to zap's
// global logger outside the middleware chain.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKey).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}
