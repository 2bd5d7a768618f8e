package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/gateway"
	"github.com/victorivanov/mship/internal/metrics"
	"github.com/victorivanov/mship/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Bans    *BanHandler
	Gateway *gateway.Manager
	Metrics *metrics.Metrics

	TokenService *auth.TokenService
	Redis        *redis.Client

	// RateLimit is the per-account request budget per minute. Zero uses 60.
	RateLimit int

	// HealthChecks are run by /health, keyed by backend name.
	HealthChecks map[string]func(context.Context) error
}

// healthHandler reports 503 with the failing backends if any check fails.
func healthHandler(checks map[string]func(context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		var failing []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.Logger().Warnf("health check %s failed: %v", name, err)
				failing = append(failing, name)
			}
		}
		if len(failing) > 0 {
			sort.Strings(failing)
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	e.GET("/health", healthHandler(deps.HealthChecks))

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	// WebSocket gateway; tokens are checked on IDENTIFY.
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	limit := deps.RateLimit
	if limit <= 0 {
		limit = 60
	}

	v1 := e.Group("/api/v1")
	protected := v1.Group("", deps.TokenService.Middleware(),
		RateLimitMiddleware(deps.Redis, limit, time.Minute),
	)

	// Account details page
	protected.GET("/accounts/:id/bans", deps.Bans.ListAccountBans)

	// Ban panel and its actions
	protected.GET("/bans/:id", deps.Bans.GetBan)
	protected.PATCH("/bans/:id", deps.Bans.ModifyBan)
	protected.POST("/bans/:id/repeal", deps.Bans.RepealBan)
	protected.POST("/bans/:id/notes", deps.Bans.AttachNote)
}
