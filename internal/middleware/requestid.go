package middleware

import (
    "github.com/google/uuid"      // uuid generates request identifiers
    "github.com/labstack/echo/v4" // echo provides the middleware signature
)

// RequestID tags every request with an X-Request-ID.  A client supplied id
// is kept as long as it is reasonably short; otherwise a fresh uuid is
// generated.  The id is mirrored on the request and the response so the
// logger middleware and the client see the same value.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(echo.HeaderXRequestID)
            if rid == "" || len(rid) > 128 {
                rid = uuid.NewString()
                req.Header.Set(echo.HeaderXRequestID, rid)
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)
            return next(c)
        }
    }
}
