package domain

import (
	"context"
	"time"
)

// MovieEntry is a single film logged by a user.
type MovieEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	WatchedOn string    `json:"watchedOn"`
	Rating    float64   `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
}

// MovieRepository is the port for movie journal persistence.
type MovieRepository interface {
	AddMovie(ctx context.Context, userID int64, name, watchedOn string, rating float64, review string, createdAt time.Time) (int64, error)
	ListMovies(ctx context.Context, userID int64) ([]MovieEntry, error)
}
