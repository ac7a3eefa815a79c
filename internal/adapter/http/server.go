package adapthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"moviejournal/internal/app"
	"moviejournal/internal/chat"
)

const healthTimeout = 2 * time.Second

// Options carries the optional settings of a Server.
type Options struct {
	Logger           zerolog.Logger
	CookieSecure     bool
	TrustForwardAuth bool
	OIDC             *OIDCConfig

	// HealthCheck, when set, is called by /health; an error reports 503.
	HealthCheck func(ctx context.Context) error

	// ChatContext bounds the lifetime of websocket clients. It must outlive
	// individual requests; nil means context.Background().
	ChatContext context.Context
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth      *app.AuthService
	movies    *app.MovieService
	recommend *app.RecommendService
	chat      *app.ChatService
	hub       *chat.Hub

	log              zerolog.Logger
	pages            *renderer
	validate         *validator.Validate
	oidcConfig       *OIDCConfig
	cookieSecure     bool
	trustForwardAuth bool
	chatCtx          context.Context
	healthCheck      func(ctx context.Context) error
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, movies *app.MovieService, recommend *app.RecommendService, chatSvc *app.ChatService, hub *chat.Hub, opts Options) *Server {
	oidcConfig := opts.OIDC
	if oidcConfig == nil {
		oidcConfig = &OIDCConfig{}
	}
	chatCtx := opts.ChatContext
	if chatCtx == nil {
		chatCtx = context.Background()
	}
	return &Server{
		auth:             auth,
		movies:           movies,
		recommend:        recommend,
		chat:             chatSvc,
		hub:              hub,
		log:              opts.Logger,
		pages:            newRenderer(),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		oidcConfig:       oidcConfig,
		cookieSecure:     opts.CookieSecure,
		trustForwardAuth: opts.TrustForwardAuth,
		chatCtx:          chatCtx,
		healthCheck:      opts.HealthCheck,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /{$}", s.handleLoginForm)
	mux.HandleFunc("POST /{$}", s.handleLogin)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)

	mux.Handle("GET /home", s.requireSession(http.HandlerFunc(s.handleHome)))
	mux.Handle("GET /add_movie", s.requireSession(http.HandlerFunc(s.handleAddMovieForm)))
	mux.Handle("POST /add_movie", s.requireSession(http.HandlerFunc(s.handleAddMovie)))
	mux.Handle("GET /view_movies", s.requireSession(http.HandlerFunc(s.handleViewMovies)))

	mux.HandleFunc("GET /socket", s.handleSocket)

	return s.loggingMiddleware(withNoCache(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
