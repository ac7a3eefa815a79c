package postgres

import (
	"context"
	"time"

	"moviejournal/internal/domain"
)

var _ domain.MovieRepository = (*DB)(nil)

// AddMovie inserts a movie entry for a user.
func (d *DB) AddMovie(ctx context.Context, userID int64, name, watchedOn string, rating float64, review string, createdAt time.Time) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO movies(user_id, name, watched_on, rating, review, created_at) VALUES($1, $2, $3, $4, $5, $6) RETURNING id;",
		userID, name, watchedOn, rating, review, createdAt.UTC(),
	).Scan(&id)
	return id, err
}

// ListMovies returns a user's movies in insertion order.
func (d *DB) ListMovies(ctx context.Context, userID int64) ([]domain.MovieEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, name, watched_on, rating, review, created_at FROM movies WHERE user_id=$1 ORDER BY id;", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.MovieEntry, 0)
	for rows.Next() {
		var e domain.MovieEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.WatchedOn, &e.Rating, &e.Review, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID
		out = append(out, e)
	}
	return out, rows.Err()
}
