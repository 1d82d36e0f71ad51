package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultRelayChannel = "booking:live-events"

type envelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}

// RedisRelay fans broadcasts out across server instances. Broadcast publishes to a
// Redis channel; Run delivers every received message to the local Hub, including
// the ones this instance published itself.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel, hub: hub, log: log}
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

func (r *RedisRelay) Broadcast(ctx context.Context, userID string, evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(envelope{UserID: userID, Event: evt})
	if err != nil {
		return fmt.Errorf("marshal relay envelope failed: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to relay failed: %w", err)
	}
	return nil
}

// Run subscribes and delivers until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to relay failed: %w", err)
	}
	r.log.Info("live event relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn("discarding malformed relay message", zap.Error(err))
		return
	}
	if env.UserID == "" {
		return
	}
	if err := r.hub.Broadcast(ctx, env.UserID, env.Event); err != nil {
		r.log.Warn("relay delivery failed", zap.String("user_id", env.UserID), zap.Error(err))
	}
}
