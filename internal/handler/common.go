package handler // handler defines http handlers

import (
    "context"  // context bounds repository calls
    "errors"   // errors matches sentinel values
    "net/http" // net/http provides status codes
    "strconv"  // strconv parses path and query parameters
    "time"     // time defines the per-request timeout

    validation "github.com/go-ozzo/ozzo-validation" // validation.Errors is the field-error body
    "github.com/labstack/echo/v4"                   // echo defines request context types
    "go.uber.org/zap"                               // zap for error logging

    "github.com/iliyamo/persons-api/internal/logger"     // request-scoped logger
    "github.com/iliyamo/persons-api/internal/repository" // repository sentinel errors
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

// Pagination bounds for list endpoints.
const (
    defaultLimit = 100
    maxLimit     = 1000
)

// Error details shared by several handlers.
const (
    msgNotFound    = "Not found."
    msgInternal    = "internal error"
    msgEmailExists = "user with this email already exists."
)

func detail(msg string) echo.Map { return echo.Map{"detail": msg} }

// withTimeout derives the storage context for a request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bindJSON decodes the request body into v.  Decoding failures are answered
// directly and reported through ok=false.
func bindJSON(c echo.Context, v any) (bool, error) {
    if err := c.Bind(v); err != nil {
        var he *echo.HTTPError
        if errors.As(err, &he) {
            msg, _ := he.Message.(string)
            if msg == "" {
                msg = http.StatusText(he.Code)
            }
            return false, c.JSON(he.Code, detail(msg))
        }
        return false, c.JSON(http.StatusBadRequest, detail("Malformed request body."))
    }
    return true, nil
}

// parseID reads the :id path parameter.  Anything that is not a positive
// integer cannot name a row, so it is answered with 404.
func parseID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// parsePage reads ?limit= and ?offset=.
func parsePage(c echo.Context) (limit, offset int, err error) {
    limit, offset = defaultLimit, 0
    if s := c.QueryParam("limit"); s != "" {
        n, convErr := strconv.Atoi(s)
        if convErr != nil || n < 1 {
            return 0, 0, errors.New("limit must be a positive integer")
        }
        limit = min(n, maxLimit)
    }
    if s := c.QueryParam("offset"); s != "" {
        n, convErr := strconv.Atoi(s)
        if convErr != nil || n < 0 {
            return 0, 0, errors.New("offset must be a non-negative integer")
        }
        offset = n
    }
    return limit, offset, nil
}

// respondError maps service and repository errors onto HTTP responses.
// Unknown errors are logged and hidden behind a generic 500.
func respondError(c echo.Context, err error) error {
    var verrs validation.Errors
    switch {
    case errors.As(err, &verrs):
        return c.JSON(http.StatusBadRequest, verrs)
    case errors.Is(err, repository.ErrPersonNotFound),
        errors.Is(err, repository.ErrAddressNotFound),
        errors.Is(err, repository.ErrUserNotFound):
        return c.JSON(http.StatusNotFound, detail(msgNotFound))
    case errors.Is(err, repository.ErrEmailExists):
        return c.JSON(http.StatusBadRequest, echo.Map{"email": msgEmailExists})
    }
    logger.FromEcho(c).Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err),
    )
    return c.JSON(http.StatusInternalServerError, detail(msgInternal))
}
