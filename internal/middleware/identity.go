package middleware

// identity.go holds the helpers that read the authenticated principal that
// JWTAuth stores in the echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// ContextUserID is the echo context key holding the authenticated user id.
const ContextUserID = "user_id"

// UserID returns the user id stored by JWTAuth.  The second return value is
// false for anonymous requests.
func UserID(c echo.Context) (uint64, bool) {
    if v, ok := c.Get(ContextUserID).(uint64); ok {
        return v, v != 0
    }
    return 0, false
}

// currentUserID renders the principal for rate-limit keys.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
