// Package web is the HTTP surface: auth endpoints, the task API and a
// server-sent snapshot stream, all driven through the same controller as
// the CLI.
package web

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"quicktasks/internal/identity"
	"quicktasks/internal/service"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "quicktasks_session"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// AllowedOrigins are the CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// Logger receives one line per request.
	Logger *log.Logger
}

// Server serves the HTTP surface.
type Server struct {
	gateway *identity.Local
	backend service.Backend
	logger  *log.Logger
	handler http.Handler
}

// New creates a Server. gateway must not keep sessions of its own; every
// request carries its token.
func New(gateway *identity.Local, backend service.Backend, opts Options) *Server {
	s := &Server{
		gateway: gateway,
		backend: backend,
		logger:  opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/me", s.requireUser(s.handleMe))

	mux.HandleFunc("GET /{$}", s.redirectAnonymous(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tasks", http.StatusSeeOther)
	}))
	mux.HandleFunc("GET /tasks", s.redirectAnonymous(s.handleTasksPage))
	mux.HandleFunc("GET /login", s.handleLoginPage)

	mux.HandleFunc("GET /api/tasks", s.requireUser(s.handleListTasks))
	mux.HandleFunc("POST /api/tasks", s.requireUser(s.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/stream", s.requireUser(s.handleStream))
	mux.HandleFunc("PATCH /api/tasks/{id}", s.requireUser(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.requireUser(s.handleDeleteTask))

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.handler = s.logRequests(c.Handler(mux))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Open snapshot streams end with their request contexts.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusWriter records the response status for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the flusher.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		s.logger.Printf("%s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
	})
}
