package middleware

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"authgate/config"
	"authgate/internal/delivery/api/response"
	deliverycontext "authgate/internal/delivery/context"
	domainerrors "authgate/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

// clientLimiter is the token bucket of one client IP.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles credential endpoints per client IP.
type RateLimiter struct {
	perMinute       float64
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// RateLimiterParams holds dependencies for RateLimiter, injected by Fx.
type RateLimiterParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewRateLimiter creates a RateLimiter whose cleanup loop runs until the app stops.
func NewRateLimiter(params RateLimiterParams) *RateLimiter {
	rl := newRateLimiter(*params.Config.RateLimit, params.Logger)

	params.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go rl.cleanupLoop()

			return nil
		},
		OnStop: func(context.Context) error {
			rl.Stop()

			return nil
		},
	})

	return rl
}

func newRateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &RateLimiter{
		perMinute:       cfg.RatePerMinute,
		limit:           rate.Limit(cfg.RatePerMinute / 60),
		burst:           cfg.Burst,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		now:             time.Now,
		limiters:        make(map[string]*clientLimiter),
		stopCh:          make(chan struct{}),
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// Handle rejects a client that exceeded its budget with 429 and Retry-After.
func (rl *RateLimiter) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if rl.limiterFor(ip).Allow() {
			return next(c)
		}

		deliverycontext.GetLoggerOrDefault(c.Request().Context(), rl.logger).Warn("Rate limit exceeded",
			slog.String("remote_ip", ip),
			slog.String("path", c.Path()),
		)
		c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(rl.retryAfterSeconds()))

		return response.FromAppError(c, domainerrors.ErrTooManyRequests)
	}
}

// Len reports how many client IPs are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = rl.now()

	return entry.limiter
}

// retryAfterSeconds estimates how long until one token is refilled.
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.perMinute <= 0 {
		return 60
	}

	return max(1, int(math.Ceil(60/rl.perMinute)))
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops clients idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup() {
	ttl := rl.cleanupInterval * 2
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}
