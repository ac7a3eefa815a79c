package adapthttp

import (
	"net/http"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	rec, err := s.recommend.Recommend(r.Context(), user)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("recommendation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	history, err := s.chat.History(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("chat history failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "home.html", pageData{
		Title:          "Home",
		Recommendation: rec,
		ChatHistory:    history,
	})
}

func (s *Server) handleAddMovieForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "add_movie.html", pageData{Title: "Add movie"})
}

func (s *Server) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	form := parseMovieForm(r)
	if err := s.validate.Struct(form); err != nil {
		s.redirectWithFlash(w, r, "/add_movie", flashWarning, describeValidation(err))
		return
	}
	rating, err := form.rating()
	if err != nil {
		s.redirectWithFlash(w, r, "/add_movie", flashWarning, "Rating must be a number.")
		return
	}

	if _, err := s.movies.AddMovie(r.Context(), user.ID, form.Name, form.WatchedOn, rating, form.Review); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("add movie failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.redirectWithFlash(w, r, "/view_movies", flashSuccess, "Movie added!")
}

func (s *Server) handleViewMovies(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	movies, err := s.movies.ListMovies(r.Context(), user.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("list movies failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "view_movies.html", pageData{Title: "My movies", Movies: movies})
}
