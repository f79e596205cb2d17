// Package session maps token pairs onto the two httponly cookies the
// browser client authenticates with, and extracts the access token from
// inbound requests.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/persons-api/internal/utils"
)

// Cookie names per mode.  The __Host- prefix requires Secure, Path=/ and no
// Domain, so prod names are only ever paired with prod flags.
const (
	AccessCookieDev      = "access"
	RefreshCookieDev     = "refresh"
	AccessCookieProd     = "__Host-access"
	RefreshCookieProd    = "__Host-refresh"
	defaultAccessMaxAge  = 300
	defaultRefreshMaxAge = 2592000
)

// CookieManager sets and reads the session cookies.  The mode is fixed at
// construction.
type CookieManager struct {
	accessName    string
	refreshName   string
	secure        bool
	sameSite      http.SameSite
	accessMaxAge  int
	refreshMaxAge int
}

// NewCookieManager selects names and flags for the given mode.  Max-Age
// follows the token lifetimes; non-positive TTLs fall back to 300s and 30
// days.
func NewCookieManager(prod bool, accessTTL, refreshTTL time.Duration) *CookieManager {
	m := &CookieManager{
		accessName:    AccessCookieDev,
		refreshName:   RefreshCookieDev,
		sameSite:      http.SameSiteLaxMode,
		accessMaxAge:  seconds(accessTTL, defaultAccessMaxAge),
		refreshMaxAge: seconds(refreshTTL, defaultRefreshMaxAge),
	}
	if prod {
		m.accessName = AccessCookieProd
		m.refreshName = RefreshCookieProd
		m.secure = true
		m.sameSite = http.SameSiteNoneMode
	}
	return m
}

func seconds(d time.Duration, def int) int {
	if d <= 0 {
		return def
	}
	return int(d / time.Second)
}

// AccessName returns the access cookie name for the active mode.
func (m *CookieManager) AccessName() string { return m.accessName }

// RefreshName returns the refresh cookie name for the active mode.
func (m *CookieManager) RefreshName() string { return m.refreshName }

// Attach sets both session cookies.
func (m *CookieManager) Attach(w http.ResponseWriter, access utils.AccessToken, refresh utils.RefreshToken) {
	m.AttachAccess(w, access)
	http.SetCookie(w, m.cookie(m.refreshName, refresh.Raw, m.refreshMaxAge))
}

// AttachAccess sets only the access cookie; the refresh cookie is left as is.
func (m *CookieManager) AttachAccess(w http.ResponseWriter, access utils.AccessToken) {
	http.SetCookie(w, m.cookie(m.accessName, access.Token, m.accessMaxAge))
}

// Clear expires both cookies.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	for _, name := range []string{m.accessName, m.refreshName} {
		c := m.cookie(name, "", -1)
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// RefreshToken returns the refresh cookie value, or "" when absent.
func (m *CookieManager) RefreshToken(r *http.Request) string {
	return cookieValue(r, m.refreshName)
}

// Extract returns the bearer token for the request.  An Authorization header
// takes precedence over the access cookie even if it is malformed; in that
// case "" is returned and the cookie is ignored.
func (m *CookieManager) Extract(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return cookieValue(r, m.accessName)
}

func (m *CookieManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
