package web

import (
	"context"
	"net/http"
	"strings"

	"quicktasks/internal/identity"
)

type ctxKey string

const userKey ctxKey = "user"

// UserFromContext returns the user attached by requireUser.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userKey).(identity.User)
	return u, ok
}

// bearerToken returns the token from the Authorization header, falling
// back to the session cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) authenticate(r *http.Request) (identity.User, bool) {
	token := bearerToken(r)
	if token == "" {
		return identity.User{}, false
	}
	u, err := s.gateway.Verify(token)
	if err != nil {
		return identity.User{}, false
	}
	return u, true
}

// requireUser answers 401 unless the request carries a valid session.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}
}

// redirectAnonymous sends requests without a valid session to /login.
func (s *Server) redirectAnonymous(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.authenticate(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}
}
