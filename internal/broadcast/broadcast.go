// Package broadcast publishes the built event list to other modules.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"agendacal/internal/config"
	appLog "agendacal/internal/log"
	"agendacal/internal/model"
)

// Notification names the message carrying the event list.
const Notification = "CALENDAR_EVENTS"

// Envelope is the message sent to subscribers.
type Envelope struct {
	Notification string                 `json:"notification"`
	SentAt       time.Time              `json:"sent_at"`
	Events       []model.BroadcastEvent `json:"events"`
}

// NewEnvelope wraps events in a CALENDAR_EVENTS envelope.
func NewEnvelope(events []model.BroadcastEvent, at time.Time) Envelope {
	if events == nil {
		events = []model.BroadcastEvent{}
	}
	return Envelope{Notification: Notification, SentAt: at, Events: events}
}

// Publisher delivers envelopes.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// New returns a Redis publisher when an address is configured, else a
// publisher that only logs.
func New(cfg config.BroadcastConfig) (Publisher, error) {
	if cfg.RedisAddress == "" {
		return LogPublisher{}, nil
	}
	return NewRedisPublisher(cfg)
}

// LogPublisher writes a one-line summary of every envelope to the log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, env Envelope) error {
	appLog.Info("broadcast", "notification", env.Notification, "events", len(env.Events))
	return nil
}

func (LogPublisher) Close() error { return nil }

// RedisPublisher publishes envelopes on a Redis channel and keeps the
// latest one under a key for late subscribers.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	key     string
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(cfg config.BroadcastConfig) (*RedisPublisher, error) {
	if cfg.Channel == "" {
		cfg.Channel = config.DefaultBroadcastChannel
	}
	if cfg.Key == "" {
		cfg.Key = config.DefaultBroadcastKey
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("broadcast: failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{rdb: rdb, channel: cfg.Channel, key: cfg.Key}, nil
}

// Publish stores env under the key and publishes it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("broadcast: marshal envelope: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, p.key, data, 0)
	pipe.Publish(ctx, p.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("broadcast: publish to %s: %w", p.channel, err)
	}

	appLog.Debug("broadcast published", "channel", p.channel, "events", len(env.Events))
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
