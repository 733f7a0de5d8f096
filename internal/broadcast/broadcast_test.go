package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/config"
	"agendacal/internal/model"
)

func setupTestRedis(t *testing.T) (*RedisPublisher, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	p, err := NewRedisPublisher(config.BroadcastConfig{
		RedisAddress: mr.Addr(),
		Channel:      "test:events",
		Key:          "test:events:latest",
	})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	return p, mr
}

func sampleEnvelope() Envelope {
	return NewEnvelope([]model.BroadcastEvent{{
		Title:     "Standup",
		StartDate: 1741770000000,
		EndDate:   1741770900000,
		Today:     true,
		Symbol:    []string{"calendar"},
		Color:     "#fff",
	}}, time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC))
}

func TestRedisPublisherPublish(t *testing.T) {
	p, mr := setupTestRedis(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sub := rdb.Subscribe(ctx, "test:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	msgs := sub.Channel()

	env := sampleEnvelope()
	require.NoError(t, p.Publish(ctx, env))

	select {
	case msg := <-msgs:
		var got Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, Notification, got.Notification)
		require.Len(t, got.Events, 1)
		assert.Equal(t, env.Events[0], got.Events[0])
		assert.True(t, got.SentAt.Equal(env.SentAt))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	stored, err := mr.Get("test:events:latest")
	require.NoError(t, err)
	assert.Contains(t, stored, `"notification":"CALENDAR_EVENTS"`)
	assert.Contains(t, stored, `"startDate":1741770000000`)
}

func TestNewRedisPublisherUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisPublisher(config.BroadcastConfig{RedisAddress: addr})
	assert.Error(t, err)
}

func TestNewSelectsPublisher(t *testing.T) {
	p, err := New(config.BroadcastConfig{})
	require.NoError(t, err)
	assert.IsType(t, LogPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
	assert.NoError(t, p.Close())

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	p, err = New(config.BroadcastConfig{RedisAddress: mr.Addr()})
	require.NoError(t, err)
	defer p.Close()
	assert.IsType(t, &RedisPublisher{}, p)

	require.NoError(t, p.Publish(context.Background(), sampleEnvelope()))
	assert.True(t, mr.Exists(config.DefaultBroadcastKey))
}

func TestNewEnvelopeNeverNil(t *testing.T) {
	env := NewEnvelope(nil, time.Now())
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"events":[]`)
}
