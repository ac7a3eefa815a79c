package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moviejournal/internal/domain"
)

// MovieService encapsulates the movie journal use cases.
type MovieService struct {
	repo domain.MovieRepository
}

// NewMovieService creates a MovieService backed by the given repository.
func NewMovieService(repo domain.MovieRepository) *MovieService {
	return &MovieService{repo: repo}
}

// AddMovie logs a film for userID. The watch date and rating are stored as
// given; neither is range or format checked.
func (s *MovieService) AddMovie(ctx context.Context, userID int64, name, watchedOn string, rating float64, review string) (int64, error) {
	if userID <= 0 {
		return 0, ErrUnauthorized
	}
	id, err := s.repo.AddMovie(ctx, userID,
		strings.TrimSpace(name), strings.TrimSpace(watchedOn), rating, strings.TrimSpace(review), time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: add movie: %w", ErrStorage, err)
	}
	return id, nil
}

// ListMovies returns the user's entries in the order they were logged.
func (s *MovieService) ListMovies(ctx context.Context, userID int64) ([]domain.MovieEntry, error) {
	items, err := s.repo.ListMovies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list movies: %w", ErrStorage, err)
	}
	return items, nil
}
