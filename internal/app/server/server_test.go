package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sifan077/PowerHook/config"
	"github.com/sifan077/PowerHook/internal/app/repository"
	"github.com/sifan077/PowerHook/internal/app/service"
	infraPrometheus "github.com/sifan077/PowerHook/internal/infra/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *infraPrometheus.Metrics) {
	t.Helper()

	cfg := config.Config{
		Server: config.ServerConfig{
			BodyLimit:    config.DefaultBodyLimit,
			ExtraMethods: []string{"purge", "PROPFIND", "GET"},
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	metrics := infraPrometheus.NewMetrics()
	store := repository.NewMemoryStore(repository.Options{CodeFilterCapacity: 1000})
	links := service.NewLinkService(store.Links(), service.WithRecorder(metrics))
	captures := service.NewCaptureService(store.Links(), store.Captures(), service.WithRecorder(metrics))

	return New(Dependencies{
		Config:         cfg,
		LinkService:    links,
		CaptureService: captures,
		Metrics:        metrics,
		Version:        "test",
	}), metrics
}

func send(t *testing.T, s *Server, req *http.Request) *http.Response {
	t.Helper()

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func newLink(t *testing.T, s *Server) string {
	t.Helper()

	resp := send(t, s, httptest.NewRequest(http.MethodPost, "/api/webhooks/links", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var link struct {
		LinkID string `json:"linkId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&link))
	return link.LinkID
}

func TestRequestMethods(t *testing.T) {
	methods := requestMethods([]string{"purge", " PROPFIND ", "GET", ""})

	assert.Contains(t, methods, "PURGE")
	assert.Contains(t, methods, "PROPFIND")
	assert.Contains(t, methods, http.MethodPatch)

	count := 0
	for _, m := range methods {
		if m == http.MethodGet {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestServer_CapturesExtensionMethods(t *testing.T) {
	s, metrics := newTestServer(t, nil)
	code := newLink(t, s)

	for _, method := range []string{"PURGE", "PROPFIND", http.MethodPatch} {
		resp := send(t, s, httptest.NewRequest(method, "/api/webhooks/receive/"+code, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode, method)
	}

	assert.Equal(t, 1.0, metricsCounter(t, metrics, "PURGE"))
}

func metricsCounter(t *testing.T, m *infraPrometheus.Metrics, method string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "powerhook_requests_captured_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "method" && label.GetValue() == method {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestServer_RejectsUnlistedMethods(t *testing.T) {
	s, _ := newTestServer(t, nil)
	code := newLink(t, s)

	resp := send(t, s, httptest.NewRequest("FOOBAR", "/api/webhooks/receive/"+code, nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send(t, s, httptest.NewRequest(http.MethodGet, "/api/webhooks/links/"+code+"/requests", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var captured []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captured))
	assert.Empty(t, captured)
}

func TestServer_PreflightVersusPlainOptions(t *testing.T) {
	s, _ := newTestServer(t, nil)
	code := newLink(t, s)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/webhooks/receive/"+code, nil)
	preflight.Header.Set("Origin", "https://example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := send(t, s, preflight)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = send(t, s, httptest.NewRequest(http.MethodOptions, "/api/webhooks/receive/"+code, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(t, s, httptest.NewRequest(http.MethodGet, "/api/webhooks/links/"+code+"/requests", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var captured []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captured))
	require.Len(t, captured, 1)
	assert.Equal(t, http.MethodOptions, captured[0]["method"])
}

func TestServer_RequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp := send(t, s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp = send(t, s, req)
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))
}

func TestServer_LocalRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, MaxRequests: 2, Window: time.Hour}
	})
	code := newLink(t, s)

	for i := 0; i < 2; i++ {
		resp := send(t, s, httptest.NewRequest(http.MethodPost, "/api/webhooks/receive/"+code, strings.NewReader("x")))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := send(t, s, httptest.NewRequest(http.MethodPost, "/api/webhooks/receive/"+code, strings.NewReader("x")))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Management routes are not limited.
	resp = send(t, s, httptest.NewRequest(http.MethodGet, "/api/webhooks/links/"+code+"/requests", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var captured []map[string]any
	require.NoError(t, json.Unmarshal(data, &captured))
	assert.Len(t, captured, 2)
}

func TestServer_DefaultConfigCapturesBurst(t *testing.T) {
	t.Chdir(t.TempDir())
	loaded, err := config.Load()
	require.NoError(t, err)

	s, _ := newTestServer(t, func(cfg *config.Config) {
		*cfg = *loaded
	})
	code := newLink(t, s)

	const n = 200
	for i := 0; i < n; i++ {
		resp := send(t, s, httptest.NewRequest(http.MethodPost, "/api/webhooks/receive/"+code, strings.NewReader("x")))
		require.Equal(t, http.StatusOK, resp.StatusCode, "delivery %d", i)
	}

	resp := send(t, s, httptest.NewRequest(http.MethodGet, "/api/webhooks/links/"+code+"/requests", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var captured []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captured))
	assert.Len(t, captured, n)
}

func TestServer_BodyLimitFallsBackToDefault(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.BodyLimit = 0
	})
	assert.Equal(t, config.DefaultBodyLimit, s.App().Config().BodyLimit)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":3000", Addr(3000))
}
