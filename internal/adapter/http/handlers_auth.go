// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"errors"
	"net/http"

	"moviejournal/internal/app"
	"moviejournal/internal/domain"
	"moviejournal/internal/metrics"
)

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", pageData{Title: "Register"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)
	if err := s.validate.Struct(form); err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		s.redirectWithFlash(w, r, "/register", flashWarning, describeValidation(err))
		return
	}

	_, err := s.auth.Register(r.Context(), form.Username, form.Password, form.Genre)
	switch {
	case err == nil:
		metrics.Registrations.WithLabelValues("ok").Inc()
		s.redirectWithFlash(w, r, "/login", flashSuccess, "Account created! Please log in.")
	case errors.Is(err, domain.ErrDuplicateUsername):
		metrics.Registrations.WithLabelValues("duplicate").Inc()
		s.redirectWithFlash(w, r, "/register", flashWarning, "Username already exists. Try another one.")
	case errors.Is(err, app.ErrPasswordTooLong):
		metrics.Registrations.WithLabelValues("invalid").Inc()
		s.redirectWithFlash(w, r, "/register", flashWarning, "Password must be at most 72 bytes.")
	case errors.Is(err, app.ErrInvalidInput):
		metrics.Registrations.WithLabelValues("invalid").Inc()
		s.redirectWithFlash(w, r, "/register", flashWarning, "Username and password are required.")
	default:
		metrics.Registrations.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("username", form.Username).Msg("registration failed")
		s.redirectWithFlash(w, r, "/register", flashDanger, "Something went wrong. Please try again.")
	}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", pageData{Title: "Log in", SSOEnabled: s.oidcConfig.Enabled})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	if err := s.validate.Struct(form); err != nil {
		s.redirectWithFlash(w, r, "/login", flashDanger, "Invalid username or password.")
		return
	}

	token, user, err := s.auth.Login(r.Context(), form.Username, form.Password, r.UserAgent(), clientIP(r))
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.redirectWithFlash(w, r, "/login", flashDanger, "Invalid username or password.")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("login failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, token)
	s.redirectWithFlash(w, r, "/home", flashSuccess, "Welcome back, "+user.Username+"!")
}

// handleLogout ends the caller's session and empties the shared chat history.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			s.log.Error().Err(err).Msg("logout failed")
		}
	}
	if err := s.chat.Reset(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("chat reset failed")
	}

	clearCookie(w, sessionCookie)
	s.redirectWithFlash(w, r, "/login", flashInfo, "You have been logged out.")
}
