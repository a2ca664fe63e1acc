// Package queue provides the extraction job queue producer.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/docmill/extraction-engine/internal/config"
	"github.com/docmill/extraction-engine/internal/storage"
)

// ExtractionPayload describes one extraction job built from committed
// task/file state.
type ExtractionPayload struct {
	Model          storage.ExtractionModel `json:"model"`
	InputLocation  string                  `json:"input_location"`
	OutputLocation string                  `json:"output_location"`
	Expiration     *time.Time              `json:"expiration,omitempty"`
	BatchSize      int                     `json:"batch_size,omitempty"`
	FileID         string                  `json:"file_id"`
	TaskID         string                  `json:"task_id"`
}

// Envelope is the queue submission wrapper. ItemID must be fresh per
// submission so the queue layer can deduplicate retried deliveries without
// conflating unrelated jobs; delivery is at-least-once.
type Envelope struct {
	QueueName      string          `json:"queue_name"`
	PublishChannel *string         `json:"publish_channel,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	MaxAttempts    int             `json:"max_attempts,omitempty"`
	ItemID         string          `json:"item_id"`
}

// NewEnvelope wraps payload for submission to queueName with a freshly
// generated item id.
func NewEnvelope(queueName string, payload ExtractionPayload, maxAttempts int) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{
		QueueName:   queueName,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		ItemID:      uuid.New().String(),
	}, nil
}

// Producer submits envelopes to the job queue.
type Producer interface {
	Produce(ctx context.Context, envelopes []Envelope) error
}

// RedisProducer pushes envelopes onto Redis list queues.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a producer and verifies connectivity.
func NewRedisProducer(ctx context.Context, cfg config.RedisConfig) (*RedisProducer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisProducer{client: client}, nil
}

// Produce pushes each envelope onto its queue list. A failed push fails
// the call; earlier envelopes in the batch may already be queued, which is
// acceptable under at-least-once semantics.
func (p *RedisProducer) Produce(ctx context.Context, envelopes []Envelope) error {
	for _, env := range envelopes {
		data, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", env.ItemID, err)
		}
		if err := p.client.RPush(ctx, env.QueueName, data).Err(); err != nil {
			return fmt.Errorf("push to %s: %w", env.QueueName, err)
		}
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisProducer) Close() error {
	return p.client.Close()
}
