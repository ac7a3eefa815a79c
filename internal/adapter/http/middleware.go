package adapthttp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"moviejournal/internal/app"
	"moviejournal/internal/domain"
	"moviejournal/internal/metrics"
)

type contextKey string

const userContextKey contextKey = "user"

const sessionCookie = "session"

// requireSession resolves the caller's user and stores it in the request
// context. Callers without a live session are sent to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		switch {
		case err == nil:
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		case errors.Is(err, app.ErrStorage):
			s.log.Error().Err(err).Str("path", r.URL.Path).Msg("session lookup failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			clearCookie(w, sessionCookie)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		}
	})
}

// currentUser checks a trusted Remote-User header first and falls back to
// the session cookie.
func (s *Server) currentUser(r *http.Request) (*domain.User, error) {
	if s.trustForwardAuth {
		if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
			return s.auth.ValidateForwardAuth(r.Context(), remoteUser)
		}
	}
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, app.ErrSessionNotFound
	}
	return s.auth.ValidateSession(r.Context(), cookie.Value, r.UserAgent())
}

func userFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
