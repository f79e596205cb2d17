package router // package router defines how HTTP routes are registered for the API

import (
	"net/http" // http methods for CORS
	"strings"  // path checks for the trailing-slash skipper

	"github.com/labstack/echo/v4"                    // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // echo's bundled middleware (recover, CORS, trailing slash)
	"go.uber.org/zap"                                // structured logger for the request log

	"github.com/iliyamo/persons-api/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/persons-api/internal/logger"     // request logging middleware
	"github.com/iliyamo/persons-api/internal/metrics"    // prometheus middleware and handler
	"github.com/iliyamo/persons-api/internal/middleware" // request ids, JWT authentication, rate limiting
)

// Use installs the middleware every request passes through.  Paths are
// normalised to end in "/" before routing so that both /api/persons and
// /api/persons/ reach the same handler; /healthz and /metrics keep their
// bare form.
func Use(e *echo.Echo, log *zap.Logger, m *metrics.Metrics, origins []string) {
	e.Pre(echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api")
		},
	}))
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware(log))
	e.Use(m.Middleware())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// RegisterAuth registers the cookie-session endpoints under /api/auth.
// login, refresh and logout sit behind the rate limiter; me requires a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter, auth echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/login/", a.Login, limiter)
	g.POST("/refresh/", a.Refresh, limiter)
	g.POST("/logout/", a.Logout, limiter)
	g.GET("/me/", a.Me, auth)
}

// crud is implemented by every resource handler.
type crud interface {
	List(c echo.Context) error
	Create(c echo.Context) error
	Get(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// RegisterAPI registers the authenticated CRUD resources.
func RegisterAPI(e *echo.Echo, auth echo.MiddlewareFunc, persons *handler.PersonHandler, addresses *handler.AddressHandler, users *handler.UserHandler) {
	api := e.Group("/api", auth)
	resource(api, "/persons", persons)
	resource(api, "/addresses", addresses)
	resource(api, "/users", users)
}

func resource(g *echo.Group, prefix string, h crud) {
	g.GET(prefix+"/", h.List)
	g.POST(prefix+"/", h.Create)
	g.GET(prefix+"/:id/", h.Get)
	g.PUT(prefix+"/:id/", h.Update)
	g.PATCH(prefix+"/:id/", h.Update)
	g.DELETE(prefix+"/:id/", h.Delete)
}
