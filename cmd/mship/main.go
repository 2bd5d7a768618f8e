package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/victorivanov/mship/internal/api"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/config"
	"github.com/victorivanov/mship/internal/database"
	"github.com/victorivanov/mship/internal/gateway"
	"github.com/victorivanov/mship/internal/metrics"
	"github.com/victorivanov/mship/internal/policy"
	"github.com/victorivanov/mship/internal/presenter"
	redisclient "github.com/victorivanov/mship/internal/redis"
	"github.com/victorivanov/mship/internal/service"
	"github.com/victorivanov/mship/internal/snowflake"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("postgres", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		fatal("redis", err)
	}
	defer rdb.Close()

	sf, err := snowflake.NewGenerator(cfg.NodeID)
	if err != nil {
		fatal("snowflake", err)
	}
	tokenSvc := auth.NewTokenService(cfg.JWTSecret, 0)
	m := metrics.New()

	var engine policy.Engine = policy.GrantEngine{}
	if cfg.PolicyExpr != "" {
		cel, err := policy.NewCELEngine(cfg.PolicyExpr)
		if err != nil {
			fatal("policy expression", err)
		}
		engine = cel
		slog.Info("policy expression loaded", "expr", cel.Expression())
	}

	// --- Repositories ---

	accounts := database.NewAccountRepository(pool)
	roles := database.NewRoleRepository(pool)
	bans := database.NewBanRepository(pool)
	notes := database.NewNoteRepository(pool)

	// --- Services ---

	perms := service.NewPermissionLoader(roles, rdb, engine)
	gwManager := gateway.NewManager(tokenSvc, perms, m)
	p := presenter.New(
		presenter.WithLocation(cfg.DisplayLocation),
		presenter.WithAccountURL(cfg.AccountURLFormat),
	)
	banSvc := service.NewBanService(bans, notes, accounts, perms, p, sf, gwManager, m)

	deps := &api.Dependencies{
		Bans:         api.NewBanHandler(banSvc),
		Gateway:      gwManager,
		Metrics:      m,
		TokenService: tokenSvc,
		Redis:        rdb,
		RateLimit:    cfg.RateLimit,
		HealthChecks: map[string]func(context.Context) error{
			"postgres": pool.Ping,
			"redis":    rdb.Ping,
		},
	}

	// --- Echo ---

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRouter(e, deps)

	// --- Start ---

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mship starting", "addr", cfg.ServerAddr, "timezone", cfg.DisplayLocation.String())
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		fatal("shutdown error", err)
	}
}
