package app

import (
	"context"
	"fmt"
	"sync"

	"moviejournal/internal/domain"
)

// AnonymousName is the display name used for chat lines sent without a session.
const AnonymousName = "Anonymous"

// Broadcaster delivers a formatted chat line to every connected client.
type Broadcaster interface {
	Broadcast(line string)
}

// ChatService owns the shared chat history and its fan-out.
type ChatService struct {
	mu      sync.Mutex
	history domain.ChatHistory
	out     Broadcaster
}

// NewChatService creates a ChatService. A nil out only records history.
func NewChatService(history domain.ChatHistory, out Broadcaster) *ChatService {
	return &ChatService{history: history, out: out}
}

// Post formats "name: text", appends it to the history and broadcasts it.
// Append and broadcast are serialised so every client sees history order.
func (s *ChatService) Post(ctx context.Context, name, text string) (string, error) {
	if name == "" {
		name = AnonymousName
	}
	line := name + ": " + text

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.Append(ctx, line); err != nil {
		return "", fmt.Errorf("%w: append chat: %w", ErrStorage, err)
	}
	if s.out != nil {
		s.out.Broadcast(line)
	}
	return line, nil
}

// History returns every line currently held, oldest first.
func (s *ChatService) History(ctx context.Context) ([]string, error) {
	lines, err := s.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: chat history: %w", ErrStorage, err)
	}
	return lines, nil
}

// Reset empties the shared history for everyone.
func (s *ChatService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.history.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear chat: %w", ErrStorage, err)
	}
	return nil
}
