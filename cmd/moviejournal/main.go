package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	adapthttp "moviejournal/internal/adapter/http"
	"moviejournal/internal/adapter/memory"
	"moviejournal/internal/adapter/postgres"
	"moviejournal/internal/adapter/redischat"
	"moviejournal/internal/app"
	"moviejournal/internal/chat"
	"moviejournal/internal/config"
	"moviejournal/internal/domain"
	"moviejournal/internal/logging"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A background worker that must not stop cancels ctx with its error.
	ctx, fail := context.WithCancelCause(sigCtx)
	defer fail(nil)

	var (
		users       domain.UserRepository
		sessions    domain.SessionRepository
		movies      domain.MovieRepository
		healthCheck func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		users, sessions, movies = db, postgres.NewSessionRepo(db), db
		healthCheck = db.Ping
		logger.Info().Msg("using postgres storage")
	} else {
		db := memory.New()
		users, sessions, movies = db, db.NewSessionRepo(), db
		logger.Warn().Msg("DATABASE_URL not set, using in-memory storage")
	}

	hub := chat.NewHub(logger.With().Str("component", "chat").Logger())

	var history domain.ChatHistory = memory.NewChatHistory(cfg.ChatHistoryLimit)
	var out app.Broadcaster = hub
	var relay *redischat.Relay
	if cfg.Redis.Enabled() {
		client, err := redischat.NewClient(ctx, redischat.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.ChatKey,
		})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		history = redischat.NewChatHistory(client, cfg.Redis.ChatKey, cfg.ChatHistoryLimit)
		relay = redischat.NewRelay(client, cfg.Redis.ChatKey+":events", logger.With().Str("component", "relay").Logger())
		out = relay
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis chat backend")
	}

	authSvc := app.NewAuthService(users, sessions, cfg.SessionTTL)
	movieSvc := app.NewMovieService(movies)
	recSvc := app.NewRecommendService(users)
	chatSvc := app.NewChatService(history, out)

	var oidcConfig *adapthttp.OIDCConfig
	if cfg.OIDC.Enabled() {
		oc, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return err
		}
		oidcConfig = oc
		logger.Info().Str("issuer", cfg.OIDC.Issuer).Msg("sso enabled")
	}

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("chat hub stopped")
		}
	}()
	if relay != nil {
		// Without the relay, lines published to Redis never reach this
		// process's clients.
		go supervise(ctx, fail, "chat relay", func(ctx context.Context) error {
			return relay.Run(ctx, hub)
		})
	}
	go purgeSessions(ctx, authSvc, logger)

	server := adapthttp.New(authSvc, movieSvc, recSvc, chatSvc, hub, adapthttp.Options{
		Logger:           logger.With().Str("component", "http").Logger(),
		CookieSecure:     cfg.CookieSecure,
		TrustForwardAuth: cfg.TrustForwardAuth,
		OIDC:             oidcConfig,
		HealthCheck:      healthCheck,
		ChatContext:      ctx,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cause := context.Cause(ctx)
	logger.Info().AnErr("cause", cause).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// supervise runs fn and cancels the process context with an error when fn
// returns before ctx is done.
func supervise(ctx context.Context, fail context.CancelCauseFunc, name string, fn func(context.Context) error) {
	err := fn(ctx)
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errors.New("exited")
	}
	fail(fmt.Errorf("%s: %w", name, err))
}

func purgeSessions(ctx context.Context, auth *app.AuthService, logger zerolog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpired(ctx); err != nil {
				logger.Warn().Err(err).Msg("session purge failed")
			}
		}
	}
}
