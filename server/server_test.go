package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/logger"
)

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "checkout-api",
			Version: "test",
			Env:     config.EnvDevelopment,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeout: config.TimeoutConfig{
				Read:       time.Second,
				Write:      time.Second,
				Middleware: 2 * time.Second,
				Shutdown:   time.Second,
			},
			Path: config.PathConfig{
				Base:   "/api",
				Health: "/health",
				Ready:  "/ready",
			},
			CORS:      config.CORSConfig{Origins: []string{"*"}},
			BodyLimit: "1M",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", false, nil)
	return New(cfg, log), &buf
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpointUnderBasePath(t *testing.T) {
	s, _ := newTestServer(t, newTestConfig())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProbePathsFallBackToDefaults(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Path = config.PathConfig{}
	s, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", http.NoBody)).Code)
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody)).Code)
}

func TestReadyEndpointRunsChecks(t *testing.T) {
	s, buf := newTestServer(t, newTestConfig())
	s.AddReadinessCheck("clover", func(context.Context) error { return nil })
	s.AddReadinessCheck("nil", nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/ready", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, map[string]any{"clover": "ok"}, body["checks"])
	assert.NotContains(t, buf.String(), "/api/ready completed", "probes are not request-logged")
}

func TestReadyEndpointReportsFailingCheck(t *testing.T) {
	s, buf := newTestServer(t, newTestConfig())
	s.AddReadinessCheck("clover", func(context.Context) error { return errors.New("merchant lookup failed") })
	s.AddReadinessCheck("cache", func(context.Context) error { return nil })

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/ready", http.NoBody))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, map[string]any{"clover": "merchant lookup failed", "cache": "ok"}, body["checks"])
	assert.Contains(t, buf.String(), "Readiness check failed")
}

func TestErrorHandlerRendersEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown route", method: http.MethodGet, path: "/api/missing", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "wrong method", method: http.MethodDelete, path: "/api/things", wantStatus: http.StatusMethodNotAllowed, wantCode: "METHOD_NOT_ALLOWED"},
		{name: "api error", method: http.MethodGet, path: "/api/things", wantStatus: http.StatusBadGateway, wantCode: "BAD_GATEWAY"},
	}

	s, _ := newTestServer(t, newTestConfig())
	s.ModuleGroup().Add(http.MethodGet, "/things", func(echo.Context) error {
		return NewBadGatewayError("provider rejected request")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.path, http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeEnvelope(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Meta["traceId"])
			assert.NotEmpty(t, rec.Header().Get("traceparent"))
		})
	}
}

func TestErrorHandlerHidesInternalDetailsOutsideDevelopment(t *testing.T) {
	cfg := newTestConfig()
	cfg.App.Env = config.EnvProduction
	s, buf := newTestServer(t, cfg)
	s.ModuleGroup().Add(http.MethodGet, "/boom", func(echo.Context) error {
		return errors.New("database password leaked")
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/boom", http.NoBody))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "An error occurred while processing your request", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, buf.String(), "Unhandled request error")
}

func TestErrorHandlerIncludesDetailsInDevelopment(t *testing.T) {
	s, _ := newTestServer(t, newTestConfig())
	s.ModuleGroup().Add(http.MethodGet, "/boom", func(echo.Context) error {
		return errors.New("kaboom")
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/boom", http.NoBody))

	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "kaboom", resp.Error.Details["error"])
}

func TestPanicIsRecovered(t *testing.T) {
	s, buf := newTestServer(t, newTestConfig())
	s.ModuleGroup().Add(http.MethodGet, "/panic", func(echo.Context) error {
		panic("unexpected")
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/panic", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Panic recovered")
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, newTestConfig())

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.Eventually(t, func() bool { return s.Echo().ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStatusToErrorCode(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", statusToErrorCode(http.StatusBadRequest))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", statusToErrorCode(http.StatusRequestEntityTooLarge))
	assert.Equal(t, "TOO_MANY_REQUESTS", statusToErrorCode(http.StatusTooManyRequests))
	assert.Equal(t, "SERVICE_UNAVAILABLE", statusToErrorCode(http.StatusServiceUnavailable))
	assert.Equal(t, "CLIENT_ERROR", statusToErrorCode(http.StatusTeapot))
	assert.Equal(t, "INTERNAL_ERROR", statusToErrorCode(http.StatusGatewayTimeout))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/health", joinPath("", "/health"))
	assert.Equal(t, "/api/health", joinPath("/api", "/health"))
	assert.Equal(t, "/api", joinPath("/api", "/"))
	assert.Equal(t, "/api/ready", joinPath("/api", "/ready/"))
	assert.Equal(t, "/ready", normalizeRoutePath("", "/ready"))
	assert.Equal(t, "/live", normalizeRoutePath("live", "/ready"))
}

func TestModuleGroupWithoutBasePath(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Path.Base = "/"
	s, _ := newTestServer(t, cfg)

	rg := s.ModuleGroup()
	rg.Add(http.MethodGet, "/coupons", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	assert.Equal(t, "/coupons", rg.FullPath("/coupons"))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/coupons", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ok"))
}
