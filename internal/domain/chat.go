package domain

import "context"

// ChatHistory is the port for the shared chat log. Lines are kept in the
// order they were appended.
type ChatHistory interface {
	Append(ctx context.Context, line string) error
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
