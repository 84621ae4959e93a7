// Package events publishes best-effort notifications about finished work.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	TypeSearchCompleted = "search.completed"
	TypePrepGenerated   = "prep.generated"

	DefaultChannel = "prepscout.events"
)

type Event struct {
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"search_id,omitempty"`
	PostingID   string    `json:"job_id,omitempty"`
	InterviewID string    `json:"interview_id,omitempty"`
	Count       int       `json:"count,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher never fails the caller: delivery problems are logged.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Redis struct {
	client  redisPublisher
	channel string
	logger  *zap.Logger
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func NewRedis(client redisPublisher, channel string, logger *zap.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, channel: channel, logger: logger.With(zap.String("channel", channel))}
}

func (r *Redis) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Warn("encode event failed", zap.String("type", e.Type), zap.Error(err))
		return
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("publish event failed", zap.String("type", e.Type), zap.Error(err))
		return
	}
	r.logger.Debug("event published", zap.String("type", e.Type))
}
