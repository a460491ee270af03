package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/errs"
)

// CookieName carries the admin token for browser sessions.
const CookieName = "access_token"

type principalKey struct{}

// Middleware resolves the request principal from the Authorization bearer
// header or the access_token cookie. Requests without a valid token pass
// through anonymous; usecases decide what that means.
func Middleware(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := issuer.Principal(raw)
			if err != nil {
				logging.Debug(r.Context(), "admin token rejected", slog.Any("err", errs.Loggable(err)))
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logging.WithAttrs(ctx, slog.String("subject", principal.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithPrincipal(ctx context.Context, principal access.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom returns the request principal, or the anonymous zero value.
func PrincipalFrom(ctx context.Context) access.Principal {
	principal, _ := ctx.Value(principalKey{}).(access.Principal)
	return principal
}

func tokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
