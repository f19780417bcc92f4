package shop

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by Sessions.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// Sessions attaches the shopper's session to every request, issuing a new
// uuid cookie when the request has none or an unparsable one. When the
// session cannot be restored the request fails with 503 and nothing is cached.
func Sessions(reg *Registry, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if u, err := uuid.Parse(c.Value); err == nil {
					id = u.String()
				}
			}

			var (
				s       *Session
				release func()
			)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				s, release = reg.Open(id)
			} else {
				var err error
				s, release, err = reg.Acquire(r.Context(), id)
				if err != nil {
					respond(w, http.StatusServiceUnavailable, map[string]string{"error": "storage unavailable, try again"})
					return
				}
			}
			defer release()
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
