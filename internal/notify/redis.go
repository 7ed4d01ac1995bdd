package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes events on a per-source pub/sub channel and appends them to a
// capped stream, so live subscribers and late readers both see them.
type RedisSink struct {
	client    *redis.Client
	keyPrefix string
	maxLen    int64
}

// NewRedisSink creates a sink. maxLen caps the stream approximately; 0 leaves it uncapped.
func NewRedisSink(client *redis.Client, keyPrefix string, maxLen int64) *RedisSink {
	if keyPrefix == "" {
		keyPrefix = "stellarpets"
	}
	return &RedisSink{client: client, keyPrefix: keyPrefix, maxLen: maxLen}
}

// Channel returns the pub/sub channel for a source.
func (s *RedisSink) Channel(source string) string {
	return s.keyPrefix + ":events:" + source
}

// Stream returns the stream key shared by all sources.
func (s *RedisSink) Stream() string {
	return s.keyPrefix + ":events"
}

// Publish sends the event in one pipeline.
func (s *RedisSink) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.Channel(e.Source), data)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.Stream(),
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]interface{}{
			"id":     e.ID,
			"source": e.Source,
			"topic":  e.Topic,
			"owner":  e.Owner,
			"data":   data,
		},
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", e.Topic, err)
	}
	return nil
}

var _ Sink = (*RedisSink)(nil)
