package routes

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

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/catalog-admin/internal/categories"
	"github.com/angelmondragon/catalog-admin/internal/media"
	pkgAuth "github.com/angelmondragon/catalog-admin/pkg/auth"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) Load(_ context.Context, accessID string) (*session.Identity, error) {
	if accessID != "access-1" {
		return nil, nil
	}
	return &session.Identity{ID: 1, Email: "admin@example.com"}, nil
}

type stubCategories struct{}

func (stubCategories) List(context.Context, categories.Order) ([]categories.CategoryDTO, error) {
	return []categories.CategoryDTO{{ID: 1, Name: "Audio"}}, nil
}

func (stubCategories) Create(context.Context, int64, categories.CreateInput) (*categories.CategoryDTO, error) {
	return nil, errors.New("not implemented")
}

func (stubCategories) Update(context.Context, int64, int64, categories.UpdateInput) (*categories.CategoryDTO, error) {
	return nil, errors.New("not implemented")
}

func (stubCategories) Delete(context.Context, int64, int64) error {
	return errors.New("not implemented")
}

type stubProbe struct{ result media.ProbeResult }

func (s stubProbe) Status(context.Context) (media.ProbeResult, error)  { return s.result, nil }
func (s stubProbe) Refresh(context.Context) (media.ProbeResult, error) { return s.result, nil }

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "dev"},
		JWT:   config.JWTConfig{Secret: "secret", Issuer: "catalog-admin", ExpirationMinutes: 10},
		Media: config.MediaConfig{MaxFiles: 5, MaxImageMB: 5, MaxVideoMB: 20},
	}
}

func newTestRouter(probe media.ProbeResult, redisErr error) http.Handler {
	return NewRouter(Dependencies{
		Config:     testConfig(),
		Logger:     logger.Nop(),
		DB:         stubPinger{},
		Redis:      stubPinger{err: redisErr},
		Sessions:   stubSessions{},
		Categories: stubCategories{},
		Storage:    stubProbe{result: probe},
		Gatherer:   prometheus.NewRegistry(),
	})
}

func bearer(t *testing.T, cfg config.JWTConfig) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{AdminID: 1, Email: "admin@example.com", JTI: "access-1"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(media.ProbeResult{Available: true}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestHealthReadyReportsDependencies(t *testing.T) {
	ready := newTestRouter(media.ProbeResult{Available: true}, nil)
	resp := httptest.NewRecorder()
	ready.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	redisDown := newTestRouter(media.ProbeResult{Available: true}, errors.New("connection refused"))
	resp = httptest.NewRecorder()
	redisDown.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}

	storageDown := newTestRouter(media.ProbeResult{Available: false, Message: "bucket products does not exist"}, nil)
	resp = httptest.NewRecorder()
	storageDown.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "bucket products does not exist") {
		t.Fatalf("expected probe message in body, got %s", resp.Body.String())
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(media.ProbeResult{Available: true}, nil)

	for _, path := range []string{"/api/admin/v1/categories", "/api/admin/v1/products", "/api/admin/v1/auth/me", "/api/admin/v1/storage/probe"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestCategoriesListWithSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(media.ProbeResult{Available: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/categories?order=name", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWT))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"Audio"`) {
		t.Fatalf("expected category in body, got %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/categories?order=price", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWT))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown order got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(media.ProbeResult{Available: true}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMaxProductBody(t *testing.T) {
	cfg := config.MediaConfig{MaxFiles: 5, MaxImageMB: 5, MaxVideoMB: 20}
	want := int64(5*20<<20) + multipartOverhead
	if got := maxProductBody(cfg); got != want {
		t.Fatalf("expected %d got %d", want, got)
	}
}

func TestCORSExposesRequestID(t *testing.T) {
	router := newTestRouter(media.ProbeResult{Available: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
	exposed := resp.Header().Get("Access-Control-Expose-Headers")
	if !strings.Contains(exposed, chimw.RequestIDHeader) {
		t.Fatalf("expected %s in exposed headers, got %q", chimw.RequestIDHeader, exposed)
	}
}

func TestPanicLogCarriesRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})

	var handler http.Handler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	chain := baseMiddleware(testConfig(), logg)
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["panic"] == "boom" {
			found = true
			if entry["request_id"] != "req-42" {
				t.Fatalf("panic log missing request id: %v", entry)
			}
		}
	}
	if !found {
		t.Fatalf("no panic log line in %q", buf.String())
	}
}
