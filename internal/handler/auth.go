package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel matching
	"net/http" // HTTP status codes and primitives
	"time"     // last_login timestamps

	validation "github.com/go-ozzo/ozzo-validation" // request validation
	"github.com/go-ozzo/ozzo-validation/is"         // email rule
	"github.com/labstack/echo/v4"                   // Echo framework for HTTP routing
	"go.uber.org/zap"                               // structured logging

	"github.com/iliyamo/persons-api/internal/logger"     // request-scoped logger
	"github.com/iliyamo/persons-api/internal/metrics"    // login/refresh counters
	"github.com/iliyamo/persons-api/internal/middleware" // authenticated user id
	"github.com/iliyamo/persons-api/internal/model"      // user model and payload helpers
	"github.com/iliyamo/persons-api/internal/repository" // DB sentinels
	"github.com/iliyamo/persons-api/internal/session"    // auth cookies
	"github.com/iliyamo/persons-api/internal/utils"      // token issuing, hashing
)

// Auth failure details.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgNoRefreshToken     = "No refresh token"
	MsgInvalidRefresh     = "Invalid refresh token"
	MsgUserNotFound       = "User not found"
)

// UserLookup is the part of the user repository the auth endpoints need.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users   UserLookup
	Tokens  *utils.TokenIssuer
	Cookies *session.CookieManager
	Hasher  *utils.PasswordHasher
	Metrics *metrics.Metrics
}

func NewAuthHandler(u UserLookup, t *utils.TokenIssuer, c *session.CookieManager, h *utils.PasswordHasher, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{Users: u, Tokens: t, Cookies: c, Hasher: h, Metrics: m}
}

// ----- DTOs -----

type loginReq struct {
	Email    model.Optional[string] `json:"email"`
	Password model.Optional[string] `json:"password"`
}

func (r loginReq) Validate() error {
	errs := validation.Errors{}
	for key, opt := range map[string]model.Optional[string]{"email": r.Email, "password": r.Password} {
		switch {
		case !opt.Set:
			errs[key] = errors.New(model.MsgRequired)
		case opt.Null:
			errs[key] = errors.New(model.MsgNull)
		case opt.Value == "":
			errs[key] = errors.New(model.MsgBlank)
		}
	}
	if errs["email"] == nil {
		errs["email"] = validation.Validate(model.NormalizeEmail(r.Email.Value), is.Email.Error(model.MsgInvalidEmail))
	}
	return errs.Filter()
}

func success() echo.Map { return echo.Map{"success": true} }

// Login verifies credentials and sets the access and refresh cookies.
// Unknown email, wrong password, unusable password and inactive account all
// produce the same 401; unknown emails still pay for a bcrypt comparison.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if err := req.Validate(); err != nil {
		h.Metrics.Login(metrics.ResultInvalid)
		return respondError(c, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email.Value)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.Hasher.Burn(req.Password.Value)
			return h.rejectLogin(c)
		}
		h.Metrics.Login(metrics.ResultError)
		return respondError(c, err)
	}
	if !h.Hasher.Verify(u.PasswordHash, req.Password.Value) || !u.IsActive {
		return h.rejectLogin(c)
	}

	access, refresh, err := h.Tokens.Issue(u.ID)
	if err != nil {
		h.Metrics.Login(metrics.ResultError)
		return respondError(c, err)
	}
	if err := h.Users.TouchLastLogin(ctx, u.ID, time.Now()); err != nil {
		h.Metrics.Login(metrics.ResultError)
		return respondError(c, err)
	}

	h.Cookies.Attach(c.Response(), access, refresh)
	h.Metrics.Login(metrics.ResultSuccess)
	logger.FromEcho(c).Info("login", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, success())
}

func (h *AuthHandler) rejectLogin(c echo.Context) error {
	h.Metrics.Login(metrics.ResultInvalid)
	return c.JSON(http.StatusUnauthorized, detail(MsgInvalidCredentials))
}

// Refresh reads only the refresh cookie and sets a new access cookie.  The
// refresh token is not rotated and no refresh cookie is written.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.Cookies.RefreshToken(c.Request())
	if raw == "" {
		h.Metrics.Refresh(metrics.ResultMissing)
		return c.JSON(http.StatusUnauthorized, detail(MsgNoRefreshToken))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	access, err := h.Tokens.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidToken) {
			h.Metrics.Refresh(metrics.ResultInvalid)
			return c.JSON(http.StatusUnauthorized, detail(MsgInvalidRefresh))
		}
		h.Metrics.Refresh(metrics.ResultError)
		return respondError(c, err)
	}

	h.Cookies.AttachAccess(c.Response(), access)
	h.Metrics.Refresh(metrics.ResultSuccess)
	return c.JSON(http.StatusOK, success())
}

// Logout denylists the refresh cookie's token when there is one and
// expires both cookies.  It always succeeds so it can be repeated.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw := h.Cookies.RefreshToken(c.Request()); raw != "" {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := h.Tokens.Revoke(ctx, raw); err != nil && !errors.Is(err, utils.ErrInvalidToken) {
			logger.FromEcho(c).Warn("revoke refresh token failed", zap.Error(err))
		}
	}
	h.Cookies.Clear(c.Response())
	return c.JSON(http.StatusOK, success())
}

// Me returns the profile of the token subject.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, detail(middleware.MsgNoCredentials))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, detail(MsgUserNotFound))
		}
		return respondError(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, detail(MsgUserNotFound))
	}
	return c.JSON(http.StatusOK, u)
}
