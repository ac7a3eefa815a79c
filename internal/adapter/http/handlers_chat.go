package adapthttp

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"moviejournal/internal/chat"
	"moviejournal/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// handleSocket upgrades to a chat connection. The session token and
// User-Agent are captured here and re-checked for every message, so a
// connection that outlives its session posts as Anonymous.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		token = cookie.Value
	}
	userAgent := r.UserAgent()
	var remoteUser string
	if s.trustForwardAuth {
		remoteUser = r.Header.Get("Remote-User")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := chat.NewClient(s.hub, conn, func(ctx context.Context, text string) {
		name := s.senderName(ctx, token, userAgent, remoteUser)
		if _, err := s.chat.Post(ctx, name, text); err != nil {
			s.log.Error().Err(err).Msg("chat post failed")
			return
		}
		metrics.ChatMessages.Inc()
	})
	client.Start(s.chatCtx)
}

func (s *Server) senderName(ctx context.Context, token, userAgent, remoteUser string) string {
	if remoteUser != "" {
		if user, err := s.auth.ValidateForwardAuth(ctx, remoteUser); err == nil {
			return user.Username
		}
	}
	user, err := s.auth.ValidateSession(ctx, token, userAgent)
	if err != nil {
		return ""
	}
	return user.Username
}
