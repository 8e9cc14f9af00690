package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	EventRowScraped  = "ROW_SCRAPED"
	EventRunFinished = "RUN_FINISHED"

	source = "storefront-scraper"
)

// RedisClient is the subset of the redis client the publisher uses.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher appends run events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	maxLen int64
	logger *slog.Logger
	now    func() time.Time
}

type Config struct {
	Stream string
	// MaxLen trims the stream approximately when positive.
	MaxLen int64
}

func NewPublisher(client RedisClient, cfg Config) *Publisher {
	if cfg.Stream == "" {
		cfg.Stream = "scrape:results"
	}
	return &Publisher{
		redis:  client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		logger: slog.Default().With("component", "publisher"),
		now:    time.Now,
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// HandleRow publishes every emitted row.
func (p *Publisher) HandleRow(ctx context.Context, row *models.ResultRow) error {
	return p.PublishRow(ctx, row)
}

func (p *Publisher) PublishRow(ctx context.Context, row *models.ResultRow) error {
	return p.publish(ctx, EventRowScraped, row.RunID, string(row.Mode), row)
}

func (p *Publisher) PublishSummary(ctx context.Context, runID string, summary models.Summary) error {
	payload := map[string]interface{}{
		"run_id":     runID,
		"summary":    summary,
		"total_rows": summary.Total(),
	}
	return p.publish(ctx, EventRunFinished, runID, "run", payload)
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}

func (p *Publisher) publish(ctx context.Context, eventType, runID, aggregateType string, payload interface{}) error {
	id := uuid.New()
	now := p.now().UTC()

	streamData := map[string]interface{}{
		"id":             id.String(),
		"type":           eventType,
		"aggregate_type": aggregateType,
		"aggregate_id":   runID,
		"timestamp":      now.Format(time.RFC3339),
		"payload":        payload,
		"metadata": map[string]interface{}{
			"source": source,
		},
	}

	data, err := json.Marshal(streamData)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":           string(data),
			"type":           eventType,
			"timestamp":      fmt.Sprintf("%d", now.UnixNano()),
			"event_id":       id.String(),
			"aggregate_id":   runID,
			"aggregate_type": aggregateType,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "event_id", id, "type", eventType, "stream", p.stream)
	return nil
}
