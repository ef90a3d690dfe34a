package middleware

import (
	"net/http"

	"authgate/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	CSRFCookieName = "authgate_csrf"
	CSRFHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
	CSRFContextKey = "csrf"
)

// NewCSRFMiddleware guards state-changing requests with a double-submit token.
// Safe methods pass through and receive the token cookie. Other methods must echo
// the cookie value back in the X-CSRF-Token header or the csrf_token form field.
func NewCSRFMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	secure := cfg.Session != nil && cfg.Session.Secure

	return echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeaderName + ",form:" + CSRFFormField,
		ContextKey:     CSRFContextKey,
		CookieName:     CSRFCookieName,
		CookiePath:     "/",
		CookieMaxAge:   86400,
		CookieSecure:   secure,
		CookieHTTPOnly: false,
		CookieSameSite: http.SameSiteLaxMode,
	})
}
