package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cognobserve/labeling/internal/model"
)

const (
	EventQueueKey = "labeling:events"

	// Connection timeouts
	RedisConnectTimeout = 10 * time.Second
	RedisReadTimeout    = 5 * time.Second
	RedisWriteTimeout   = 5 * time.Second
)

// Event types carried in Envelope.Type
const (
	EventAssessmentSaved = "assessment.saved"
	EventItemChanged     = "item.changed"
)

// Envelope is the JSON document pushed for every event
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Producer publishes labeling events
type Producer interface {
	AssessmentSaved(ctx context.Context, event model.AssessmentEvent) error
	ItemChanged(ctx context.Context, event model.ItemEvent) error
	Close() error
}

// RedisProducer implements Producer using Redis
type RedisProducer struct {
	client *redis.Client
	key    string
}

// NewRedisProducer creates a new Redis producer
func NewRedisProducer(redisURL string) (*RedisProducer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	// Set connection timeouts to prevent indefinite hangs
	opts.DialTimeout = RedisConnectTimeout
	opts.ReadTimeout = RedisReadTimeout
	opts.WriteTimeout = RedisWriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis (timeout: %v): %w", RedisConnectTimeout, err)
	}

	return NewRedisProducerWithClient(client), nil
}

// NewRedisProducerWithClient creates a producer from an existing client
func NewRedisProducerWithClient(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client, key: EventQueueKey}
}

// Client exposes the connection so other Redis users can share it
func (p *RedisProducer) Client() *redis.Client {
	return p.client
}

// AssessmentSaved publishes a persisted assessment
func (p *RedisProducer) AssessmentSaved(ctx context.Context, event model.AssessmentEvent) error {
	return p.publish(ctx, EventAssessmentSaved, event)
}

// ItemChanged publishes an item state or comment change
func (p *RedisProducer) ItemChanged(ctx context.Context, event model.ItemEvent) error {
	return p.publish(ctx, EventItemChanged, event)
}

func (p *RedisProducer) publish(ctx context.Context, typ string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", typ, err)
	}
	msg, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", typ, err)
	}

	if err := p.client.LPush(ctx, p.key, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", typ, err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisProducer) Close() error {
	return p.client.Close()
}
