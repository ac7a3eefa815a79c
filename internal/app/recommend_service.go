package app

import (
	"context"
	"fmt"

	"moviejournal/internal/domain"
)

// NoGenrePrompt is shown instead of peers when the user has no favourite genre.
const NoGenrePrompt = "Tell us your favorite genre to get recommendations!"

// Recommendation is what the home page shows about similar users.
type Recommendation struct {
	Text  string
	Peers []string
}

// RecommendService derives peers sharing a user's favourite genre.
type RecommendService struct {
	users domain.UserRepository
}

// NewRecommendService creates a RecommendService.
func NewRecommendService(users domain.UserRepository) *RecommendService {
	return &RecommendService{users: users}
}

// Recommend builds the recommendation for user. Nothing is cached.
func (s *RecommendService) Recommend(ctx context.Context, user *domain.User) (Recommendation, error) {
	if user == nil {
		return Recommendation{}, ErrUnauthorized
	}
	if user.Genre == "" {
		return Recommendation{Text: NoGenrePrompt}, nil
	}
	peers, err := s.SimilarUsers(ctx, user.Genre, user.ID)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{
		Text: fmt.Sprintf("Because you like %s, you might enjoy movies similar to users who also like %s.",
			user.Genre, user.Genre),
		Peers: peers,
	}, nil
}

// SimilarUsers lists usernames whose genre equals genre, excluding excludeID.
// An empty genre matches nobody.
func (s *RecommendService) SimilarUsers(ctx context.Context, genre string, excludeID int64) ([]string, error) {
	if genre == "" {
		return nil, nil
	}
	peers, err := s.users.SimilarUsernames(ctx, genre, excludeID)
	if err != nil {
		return nil, fmt.Errorf("%w: similar users: %w", ErrStorage, err)
	}
	return peers, nil
}
