package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/persons-api/internal/session" // cookie/header credential extraction
    "github.com/iliyamo/persons-api/internal/utils"   // access token verification
)

// Messages returned with 401 responses.
const (
    MsgNoCredentials = "Authentication credentials were not provided."
    MsgInvalidToken  = "Given token not valid for any token type"
)

// JWTAuth returns an Echo middleware that authenticates the request with an
// access token taken from the Authorization header or, failing that, from
// the access cookie.  On success the token subject is stored in the context
// under "user_id" as a uint64; handlers read it with UserID.
func JWTAuth(issuer *utils.TokenIssuer, cookies *session.CookieManager) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := cookies.Extract(c.Request())
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"detail": MsgNoCredentials})
            }

            claims, err := issuer.ParseAccess(raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"detail": MsgInvalidToken})
            }
            uid, err := claims.UserID()
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"detail": MsgInvalidToken})
            }

            c.Set(ContextUserID, uid)
            return next(c)
        }
    }
}
