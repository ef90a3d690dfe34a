// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"authgate/internal/delivery/api/middleware"
	"authgate/internal/delivery/api/router/handler"
	"authgate/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	HomeHandler    *handler.HomeHandler
	ProfileHandler *handler.ProfileHandler
	RequireUser    *middleware.RequireUserMiddleware
	RateLimiter    *middleware.RateLimiter
	Registry       *prometheus.Registry
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	homeHandler    *handler.HomeHandler
	profileHandler *handler.ProfileHandler
	requireUser    *middleware.RequireUserMiddleware
	rateLimiter    *middleware.RateLimiter
	registry       *prometheus.Registry
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		homeHandler:    params.HomeHandler,
		profileHandler: params.ProfileHandler,
		requireUser:    params.RequireUser,
		rateLimiter:    params.RateLimiter,
		registry:       params.Registry,
	}
}

// RegisterRoutes sets up all the routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(r.registry)))

	e.GET("/", r.homeHandler.Index)
	e.GET("/csrf-token", handler.CSRFToken)

	// Credential endpoints are throttled per client IP
	e.POST("/login", r.authHandler.Login, r.rateLimiter.Handle)
	e.POST("/register", r.authHandler.Register, r.rateLimiter.Handle)
	e.GET("/logout", r.authHandler.Logout)

	oauthGroup := e.Group("/auth/oauth")
	{
		oauthGroup.GET("/start", r.authHandler.OAuthStart)
		oauthGroup.GET("/callback", r.authHandler.OAuthCallback)
	}

	// Routes that require a signed-in user
	e.POST("/profile", r.profileHandler.UpdateProfile, r.requireUser.Handle)

	apiGroup := e.Group("/api")
	apiGroup.Use(r.requireUser.Handle)
	{
		apiGroup.GET("/me", r.homeHandler.Me)
	}
}
