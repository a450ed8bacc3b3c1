package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/catalog-admin/api/responses"
	pkgAuth "github.com/angelmondragon/catalog-admin/pkg/auth"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

// TokenHeader carries the access token for clients that cannot set Authorization.
const TokenHeader = "X-Catalog-Token"

// BearerToken extracts the access token from Authorization or the catalog token header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get(TokenHeader))
	}
	return raw
}

// Auth validates the access token, loads the admin session and seeds the request context with it.
func Auth(cfg config.JWTConfig, sessions session.Loader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			identity, err := sessions.Load(r.Context(), claims.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}
			if identity == nil || identity.ID != claims.AdminID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}

			ctx := WithAdmin(r.Context(), identity, claims.ID)
			if logg != nil {
				ctx = logg.WithAdminID(ctx, identity.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
