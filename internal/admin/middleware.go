package admin

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "waitlist_session"

// LoginPath is where unauthenticated callers are sent.
const LoginPath = "/admin/login"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by RequireAuthenticated.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// RequireAuthenticated only lets requests with a live admin session reach
// next. Anonymous callers are redirected to the login form; storage failures
// while resolving the session answer 500.
func RequireAuthenticated(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			id, err := svc.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					http.Redirect(w, r, LoginPath, http.StatusSeeOther)
					return
				}
				logger.Errorw("resolve admin session", "err", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
