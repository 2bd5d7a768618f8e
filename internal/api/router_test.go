package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/gateway"
	"github.com/victorivanov/mship/internal/metrics"
)

func newTestRouter(t *testing.T, checks map[string]func(context.Context) error) (*echo.Echo, *auth.TokenService, *banFixture) {
	t.Helper()
	f := newBanFixture("*")
	ts := auth.NewTokenService("test-secret", 0)
	m := metrics.New()

	e := echo.New()
	SetupRouter(e, &Dependencies{
		Bans:         f.h,
		Gateway:      gateway.NewManager(ts, nil, m),
		Metrics:      m,
		TokenService: ts,
		Redis:        newTestRedis(t),
		HealthChecks: checks,
	})
	return e, ts, f
}

func TestRouter_Health(t *testing.T) {
	e, _, _ := newTestRouter(t, map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_HealthDegraded(t *testing.T) {
	e, _, _ := newTestRouter(t, map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("down") },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body struct {
		Failing []string `json:"failing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Failing) != 1 || body.Failing[0] != "redis" {
		t.Errorf("expected [redis] failing, got %v", body.Failing)
	}
}

func TestRouter_Metrics(t *testing.T) {
	e, _, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mship_gateway_connections") {
		t.Error("expected gateway gauge in exposition")
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	e, _, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bans/1000", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_GetBanWithToken(t *testing.T) {
	e, ts, _ := newTestRouter(t, nil)

	token, err := ts.GenerateAccessToken(adminID)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bans/1000", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-RateLimit-Limit") != "60" {
		t.Errorf("expected default rate limit header, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
}
