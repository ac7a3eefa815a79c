// Package redischat keeps the chat history in Redis and relays chat lines
// between processes over Redis pub/sub.
package redischat

import (
	"context"
	"fmt"
	"time"

	"moviejournal/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Key names the history list; the pub/sub channel is Key + ":events".
	Key string
}

// NewClient creates a Redis client and pings it.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

var _ domain.ChatHistory = (*ChatHistory)(nil)

// ChatHistory stores chat lines in a capped Redis list shared by every process.
type ChatHistory struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewChatHistory creates a history on key holding at most limit lines.
func NewChatHistory(client *redis.Client, key string, limit int) *ChatHistory {
	if limit <= 0 {
		limit = 500
	}
	return &ChatHistory{client: client, key: key, limit: int64(limit)}
}

// Append pushes a line and trims the list to the newest limit entries.
func (h *ChatHistory) Append(ctx context.Context, line string) error {
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, h.key, line)
		pipe.LTrim(ctx, h.key, -h.limit, -1)
		return nil
	})
	return err
}

// List returns every held line, oldest first.
func (h *ChatHistory) List(ctx context.Context) ([]string, error) {
	return h.client.LRange(ctx, h.key, 0, -1).Result()
}

// Clear deletes the history list.
func (h *ChatHistory) Clear(ctx context.Context) error {
	return h.client.Del(ctx, h.key).Err()
}

// Local receives lines relayed from Redis, normally the process's chat hub.
type Local interface {
	Broadcast(line string)
}

// Relay publishes chat lines to a Redis channel and forwards every line
// published by any process to the local hub.
type Relay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRelay creates a relay on channel.
func NewRelay(client *redis.Client, channel string, log zerolog.Logger) *Relay {
	return &Relay{client: client, channel: channel, log: log}
}

// Broadcast publishes line. Failures are logged and the line is dropped.
func (r *Relay) Broadcast(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, line).Err(); err != nil {
		r.log.Warn().Err(err).Str("channel", r.channel).Msg("chat publish failed, dropping line")
	}
}

// Run subscribes to the channel and forwards lines to local until ctx is done.
func (r *Relay) Run(ctx context.Context, local Local) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close() //nolint:errcheck

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info().Str("channel", r.channel).Msg("chat relay subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			local.Broadcast(msg.Payload)
		}
	}
}
