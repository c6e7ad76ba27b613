// Package relay republishes realtime events on Redis pub/sub so other
// processes (workers, dashboards) can consume a farmer's push stream
// without opening their own websocket.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	realtime "github.com/coldfarms/realtime"
)

// Envelope is the JSON document published for each event.
type Envelope struct {
	InstanceID string          `json:"instance_id"`
	FarmerID   string          `json:"farmer_id,omitempty"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Config holds connection settings for the relay.
type Config struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"coldfarms:events:"`
}

// Relay publishes events to "<prefix><event type>".
type Relay struct {
	client     *redis.Client
	prefix     string
	instanceID string
	logger     zerolog.Logger
}

// New creates a relay and verifies the Redis connection.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Relay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	r := &Relay{
		client:     client,
		prefix:     cfg.Prefix,
		instanceID: uuid.New().String(),
	}
	r.logger = logger.With().
		Str("component", "relay").
		Str("instance_id", r.instanceID).
		Logger()
	return r, nil
}

// Channel returns the Redis channel events of eventType are published on.
func (r *Relay) Channel(eventType string) string {
	return r.prefix + eventType
}

// Publish sends one event.
func (r *Relay) Publish(ctx context.Context, msg *realtime.Message, farmerID string) error {
	env := Envelope{
		InstanceID: r.instanceID,
		FarmerID:   farmerID,
		Type:       msg.Type,
		Data:       msg.Data,
		ReceivedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.Channel(msg.Type), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}

	r.logger.Debug().Str("type", msg.Type).Msg("event relayed")
	return nil
}

// Handler adapts Publish to a realtime.HandlerFunc for farmerID.
func (r *Relay) Handler(ctx context.Context, farmerID string) realtime.HandlerFunc {
	return func(msg *realtime.Message) error {
		return r.Publish(ctx, msg, farmerID)
	}
}

// Close closes the Redis connection.
func (r *Relay) Close() error {
	return r.client.Close()
}
