package middleware

import (
	"net/http"
	"strings"

	"github.com/sautihq/sauti-backend/api/responses"
	pkgAuth "github.com/sautihq/sauti-backend/pkg/auth"
	"github.com/sautihq/sauti-backend/pkg/config"
	pkgerrors "github.com/sautihq/sauti-backend/pkg/errors"
	"github.com/sautihq/sauti-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// tenant and user claims downstream handlers resolve scope from.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithTenantID(ctx, claims.TenantID.String())
			if claims.Role != "" {
				ctx = WithRole(ctx, claims.Role)
			}

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":   claims.UserID.String(),
					"tenant_id": claims.TenantID.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
