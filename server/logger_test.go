package server

import (
	"bytes"
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

	"github.com/gaborage/go-checkout/logger"
)

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func newLoggedEcho(buf *bytes.Buffer, cfg LoggerConfig) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.NoContent(http.StatusInternalServerError)
	}
	e.Use(LoggerWithConfig(logger.NewWithWriter(buf, "debug", false, nil), cfg))
	return e
}

func TestLoggerWritesRequestSummary(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf, LoggerConfig{})
	e.GET("/api/coupons", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/coupons", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "req-9")
	e.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "INFO", entry["result_code"])
	assert.Equal(t, "GET", entry["http.request.method"])
	assert.Equal(t, float64(http.StatusOK), entry["http.response.status_code"])
	assert.Equal(t, "/api/coupons", entry["http.route"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Contains(t, entry["message"], "GET /api/coupons completed in")
}

func TestLoggerUsesRenderedErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf, LoggerConfig{})
	e.GET("/fail", func(echo.Context) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(http.StatusInternalServerError), entry["http.response.status_code"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerSkipsConfiguredPaths(t *testing.T) {
	var buf bytes.Buffer
	e := newLoggedEcho(&buf, LoggerConfig{SkipPaths: []string{"/health"}})
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Empty(t, buf.String())
}

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		latency   time.Duration
		threshold time.Duration
		err       error
		level     string
		code      string
	}{
		{name: "ok", status: 200, latency: time.Millisecond, threshold: time.Second, level: "info", code: "INFO"},
		{name: "slow", status: 200, latency: 2 * time.Second, threshold: time.Second, level: "info", code: "WARN"},
		{name: "slow detection disabled", status: 200, latency: time.Hour, level: "info", code: "INFO"},
		{name: "client error", status: 404, level: "warn", code: "WARN"},
		{name: "server error", status: 502, level: "error", code: "ERROR"},
		{name: "error without status", status: 0, err: errors.New("x"), level: "error", code: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code := determineSeverity(tt.status, tt.latency, tt.threshold, tt.err)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.code, code)
		})
	}
}
