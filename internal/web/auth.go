package web

import (
	"context"
	"errors"
	"net/http"

	"quicktasks/internal/identity"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, http.StatusCreated, s.gateway.SignUpWithEmail)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, http.StatusOK, s.gateway.SignInWithEmail)
}

type signInFunc func(ctx context.Context, email, password string) (identity.Session, error)

// startSession runs a sign-in or sign-up and answers with the session. The
// token is also set as a cookie for browser clients.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, signIn signInFunc) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}

	sess, err := signIn(r.Context(), body.Email, body.Password)
	if err != nil {
		var authErr *identity.Error
		if errors.As(err, &authErr) {
			writeError(w, authStatus(authErr.Code), authErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, identity.DefaultMessage)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); ok {
		http.Redirect(w, r, "/tasks", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Sign in: POST /auth/login {\"email\": ..., \"password\": ...}\n" +
		"Register: POST /auth/register {\"email\": ..., \"password\": ...}\n"))
}
