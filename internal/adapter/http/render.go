package adapthttp

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"
	"strings"

	"moviejournal/internal/app"
	"moviejournal/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookie = "flash"

// Flash kinds, used as CSS modifiers by the layout.
const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashWarning = "warning"
	flashDanger  = "danger"
)

type flash struct {
	Kind    string
	Message string
}

type pageData struct {
	Title          string
	User           *domain.User
	Flash          *flash
	SSOEnabled     bool
	Recommendation app.Recommendation
	ChatHistory    []string
	Movies         []domain.MovieEntry
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() *renderer {
	names := []string{"login.html", "register.html", "home.html", "add_movie.html", "view_movies.html"}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return &renderer{pages: pages}
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	tmpl, ok := s.pages.pages[name]
	if !ok {
		s.log.Error().Str("page", name).Msg("unknown page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data.Flash = popFlash(w, r)
	if data.User == nil {
		data.User = userFromContext(r.Context())
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// redirectWithFlash stores a one-shot message and sends a 303 to target.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "|" + msg)),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	clearCookie(w, flashCookie)
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	switch kind {
	case flashSuccess, flashInfo, flashWarning, flashDanger:
	default:
		kind = flashInfo
	}
	return &flash{Kind: kind, Message: msg}
}
