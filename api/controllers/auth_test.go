package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/catalog-admin/api/middleware"
	"github.com/angelmondragon/catalog-admin/internal/adminusers"
	"github.com/angelmondragon/catalog-admin/internal/auth"
	pkgAuth "github.com/angelmondragon/catalog-admin/pkg/auth"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
)

type stubAuthService struct {
	login      *auth.LoginResponse
	err        error
	loggedOut  string
	refreshed  string
	refreshTok string
}

func (s *stubAuthService) Verify(context.Context, string, string) (*session.Identity, error) {
	return nil, s.err
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOut = accessID
	return s.err
}

func (s *stubAuthService) Refresh(_ context.Context, accessID, refreshToken string) (*auth.LoginResponse, error) {
	s.refreshed = accessID
	s.refreshTok = refreshToken
	return s.login, s.err
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "catalog-admin", ExpirationMinutes: 10}

func expiredToken(t *testing.T, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{AdminID: 1, JTI: jti})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		Admin:        &adminusers.AdminDTO{ID: 1, Email: "admin@example.com"},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"secret1"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get(middleware.TokenHeader); got != "access-token" {
		t.Fatalf("expected token header, got %q", got)
	}
}

func TestAuthLoginGenericFailure(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, auth.IncorrectCredentialsMessage)}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"nope"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), auth.IncorrectCredentialsMessage) {
		t.Fatalf("expected generic message, got %s", resp.Body.String())
	}
	if resp.Header().Get(middleware.TokenHeader) != "" {
		t.Fatal("no token expected on failure")
	}
}

func TestAuthLogoutAcceptsExpiredToken(t *testing.T) {
	svc := &stubAuthService{}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, "access-9"))
	resp := httptest.NewRecorder()
	AuthLogout(svc, testJWT, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.loggedOut != "access-9" {
		t.Fatalf("expected logout of access-9, got %q", svc.loggedOut)
	}
}

func TestAuthRefreshPassesAccessIDAndToken(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "next-access", RefreshToken: "next-refresh"}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set(middleware.TokenHeader, expiredToken(t, "access-3"))
	resp := httptest.NewRecorder()
	AuthRefresh(svc, testJWT, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.refreshed != "access-3" || svc.refreshTok != "r1" {
		t.Fatalf("unexpected refresh args %q %q", svc.refreshed, svc.refreshTok)
	}
	if got := resp.Header().Get(middleware.TokenHeader); got != "next-access" {
		t.Fatalf("expected rotated token header, got %q", got)
	}
}

func TestAuthRefreshRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	resp := httptest.NewRecorder()
	AuthRefresh(&stubAuthService{}, testJWT, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthMe(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/auth/me", nil)
	req = req.WithContext(middleware.WithAdmin(req.Context(), &session.Identity{ID: 4, Email: "ops@example.com"}, "a"))
	resp := httptest.NewRecorder()
	AuthMe(nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "ops@example.com") {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	AuthMe(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/v1/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
