package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds the ping
    "net/http" // net/http provides status codes and response helpers
    "time"     // ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is a health-check endpoint used by load balancers and monitoring
// systems.  With a nil db it only reports that the process is up; otherwise
// the database must answer a ping within two seconds.
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if db != nil {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            defer cancel()
            if err := db.PingContext(ctx); err != nil {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
            }
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
    }
}
